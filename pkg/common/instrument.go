package common

import (
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Instrument struct {
	Symbol  string      `yaml:"symbol" validate:"required"`
	PipSize fixed.Point `yaml:"pip_size"`
}

func (i Instrument) Fields() []zap.Field {
	return []zap.Field{
		zap.String("symbol", i.Symbol),
		zap.String("pip_size", i.PipSize.String()),
	}
}
