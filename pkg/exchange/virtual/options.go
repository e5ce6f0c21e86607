package virtual

import (
	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Option func(*Broker)

func WithLeverage(leverage fixed.Point) Option {
	return func(b *Broker) {
		b.leverage = leverage
	}
}

// WithCommission sets the commission in percent of the traded notional,
// charged on both legs.
func WithCommission(commission fixed.Point) Option {
	return func(b *Broker) {
		b.commission = commission
	}
}

// WithSpread sets the bid/ask spread in price units.
func WithSpread(spread fixed.Point) Option {
	return func(b *Broker) {
		b.spread = spread
	}
}

func WithHomeCurrency(currency string) Option {
	return func(b *Broker) {
		b.homeCurrency = currency
	}
}

func WithInstrument(instrument common.Instrument) Option {
	return func(b *Broker) {
		b.pipSizes[instrument.Symbol] = instrument.PipSize
	}
}

func WithDefaultPipSize(pipSize fixed.Point) Option {
	return func(b *Broker) {
		b.defaultPipSize = pipSize
	}
}

func WithRouter(router *bus.Router) Option {
	return func(b *Broker) {
		b.router = router
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}
