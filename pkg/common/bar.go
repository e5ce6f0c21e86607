package common

import (
	"time"

	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Bar struct {
	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
	Period      time.Duration       `json:"period"`
	Open        fixed.Point         `json:"open"`
	High        fixed.Point         `json:"high"`
	Low         fixed.Point         `json:"low"`
	Close       fixed.Point         `json:"close"`
	Volume      fixed.Point         `json:"volume"`
}

func (b Bar) Fields() []zap.Field {
	return []zap.Field{
		zap.String("symbol", b.Symbol),
		zap.Time("ts", b.TimeStamp),
		zap.String("open", b.Open.String()),
		zap.String("high", b.High.String()),
		zap.String("low", b.Low.String()),
		zap.String("close", b.Close.String()),
	}
}
