package virtual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

const brokerComponentName = "exchange.virtual.broker"

// Broker is a bar driven simulated broker with a single account. It is not
// safe for concurrent use.
type Broker struct {
	logger *zap.Logger
	router *bus.Router

	leverage       fixed.Point
	commission     fixed.Point
	spread         fixed.Point
	homeCurrency   string
	pipSizes       map[string]fixed.Point
	defaultPipSize fixed.Point

	book   *book
	ledger ledger

	simulationTime time.Time
	firstPostDone  bool
	postedBalance  fixed.Point
	postedEquity   fixed.Point
}

func NewBroker(options ...Option) (*Broker, error) {
	b := &Broker{
		logger:         zap.NewNop(),
		leverage:       fixed.One,
		commission:     fixed.Zero,
		spread:         fixed.Zero,
		pipSizes:       make(map[string]fixed.Point),
		defaultPipSize: fixed.FromInt(1, 4),
		book:           newBook(),
		ledger:         newLedger(),
	}

	for _, option := range options {
		option(b)
	}

	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if !b.leverage.IsPos() {
		return nil, fmt.Errorf("%w: leverage must be positive, got %s", ErrInvalidConfiguration, b.leverage)
	}
	if b.commission.IsNeg() {
		return nil, fmt.Errorf("%w: commission must not be negative, got %s", ErrInvalidConfiguration, b.commission)
	}
	if b.spread.IsNeg() {
		return nil, fmt.Errorf("%w: spread must not be negative, got %s", ErrInvalidConfiguration, b.spread)
	}
	if !b.defaultPipSize.IsPos() {
		return nil, fmt.Errorf("%w: pip size must be positive, got %s", ErrInvalidConfiguration, b.defaultPipSize)
	}
	for symbol, pipSize := range b.pipSizes {
		if !pipSize.IsPos() {
			return nil, fmt.Errorf("%w: pip size of %s must be positive, got %s", ErrInvalidConfiguration, symbol, pipSize)
		}
	}

	return b, nil
}

func (b *Broker) HomeCurrency() string {
	return b.homeCurrency
}

// PlaceOrder registers a request and returns its id. A request that fails
// validation is cancelled right away with ReasonInvalidOrder.
func (b *Broker) PlaceOrder(req common.OrderRequest) common.OrderId {
	if req.Type == nil {
		req.Type = common.Market{}
	}

	b.ledger.totalTrades++
	rec := b.book.add(req)

	if !validate(req) {
		b.logger.Warn("order rejected", rec.order.Fields()...)
		b.cancel(rec, ReasonInvalidOrder, req.TimeStamp)
		b.book.compact()
		return rec.order.Id
	}

	b.logger.Debug("order accepted", rec.order.Fields()...)
	b.post(bus.OrderAcceptanceEvent, rec.order)
	return rec.order.Id
}

// OnOrder places orders routed over the bus.
func (b *Broker) OnOrder(_ context.Context, req common.OrderRequest) {
	b.PlaceOrder(req)
}

// CancelOrder moves a pending order to the cancelled registry.
func (b *Broker) CancelOrder(id common.OrderId, reason string) error {
	rec, ok := b.book.get(id)
	if !ok {
		return fmt.Errorf("cancel order %d: %w", id, ErrUnknownOrder)
	}
	if rec.state != StatePending {
		return fmt.Errorf("cancel order %d in state %s: %w", id, rec.state, ErrUnknownOrder)
	}

	b.cancel(rec, reason, b.simulationTime)
	b.book.compact()
	return nil
}

// ProcessBar runs one bar of an instrument through matching, the position
// manager and the ledger. Contract violations raised by close and reduce
// instructions are joined into the returned error; the rest of the bar is
// still processed.
func (b *Broker) ProcessBar(bar common.Bar) error {
	if bar.TimeStamp.Before(b.simulationTime) {
		return fmt.Errorf("bar %s at %s, last processed %s: %w",
			bar.Symbol, bar.TimeStamp.Format(time.RFC3339), b.simulationTime.Format(time.RFC3339), ErrOutOfOrderBar)
	}
	b.simulationTime = bar.TimeStamp

	if !b.firstPostDone {
		b.firstPostDone = true
		b.postBalance()
		b.postEquity()
	}

	lastBalance := b.postedBalance
	lastEquity := b.postedEquity

	errs := b.applyMatches(bar, b.matchOrders(bar))
	b.applyExits(bar, b.evaluatePositions(bar))

	b.UpdateMargin()
	b.updateEquity()
	b.book.compact()

	if !lastBalance.Eq(b.ledger.balance) {
		b.postBalance()
	}
	if !lastEquity.Eq(b.ledger.nav) {
		b.postEquity()
	}

	return errors.Join(errs...)
}

// CloseAllPositions closes every open position at its last observed price.
func (b *Broker) CloseAllPositions(ts time.Time) []common.ClosedPosition {
	return b.ClosePositions(ts, 0)
}

// ClosePositions closes up to limit open positions, oldest first, at their
// last observed price. A limit of zero or less closes all of them. Each call
// posts one close event per position plus at most one balance and one equity
// event.
func (b *Broker) ClosePositions(ts time.Time, limit int) []common.ClosedPosition {
	var out []common.ClosedPosition
	for _, rec := range b.book.open() {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, b.closeUnits(rec, rec.position.Size, rec.position.LastPrice, ts))
	}
	b.book.compact()
	b.updateEquity()

	if !b.postedBalance.Eq(b.ledger.balance) {
		b.postBalance()
	}
	if !b.postedEquity.Eq(b.ledger.nav) {
		b.postEquity()
	}
	return out
}

func (b *Broker) pipSize(instrument string) fixed.Point {
	if pipSize, ok := b.pipSizes[instrument]; ok {
		return pipSize
	}
	return b.defaultPipSize
}

func (b *Broker) cancel(rec *record, reason string, ts time.Time) {
	cancelled := b.book.cancel(rec, reason, ts)
	b.post(bus.OrderCancelEvent, cancelled)
}

func (b *Broker) postBalance() {
	b.postedBalance = b.ledger.balance
	b.post(bus.BalanceEvent, common.Balance{
		Source:      brokerComponentName,
		ExecutionId: utility.GetExecutionID(),
		TimeStamp:   b.simulationTime,
		Value:       b.ledger.balance,
	})
}

func (b *Broker) postEquity() {
	b.postedEquity = b.ledger.nav
	b.post(bus.EquityEvent, common.Equity{
		Source:      brokerComponentName,
		ExecutionId: utility.GetExecutionID(),
		TimeStamp:   b.simulationTime,
		Value:       b.ledger.nav,
	})
}

func (b *Broker) post(id bus.EventId, data any) {
	if b.router == nil {
		return
	}
	if err := b.router.Post(id, data); err != nil {
		b.logger.Error("unable to post event", zap.Stringer("event", id), zap.Error(err))
	}
}
