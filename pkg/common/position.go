package common

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Position struct {
	Id           OrderId                      `json:"id"`
	Instrument   string                       `json:"instrument"`
	Direction    Direction                    `json:"direction"`
	Size         fixed.Point                  `json:"size"`
	EntryPrice   fixed.Point                  `json:"entry_price"`
	EntryTime    time.Time                    `json:"entry_time"`
	StopLoss     optional.Option[fixed.Point] `json:"stop_loss"`
	TakeProfit   optional.Option[fixed.Point] `json:"take_profit"`
	StopKind     StopKind                     `json:"stop_kind"`
	StopDistance optional.Option[fixed.Point] `json:"stop_distance"`
	LastPrice    fixed.Point                  `json:"last_price"`
	LastTime     time.Time                    `json:"last_time"`
	UnrealizedPL fixed.Point                  `json:"unrealized_pl"`
	Margin       fixed.Point                  `json:"margin"`
	HCF          fixed.Point                  `json:"hcf"`
	Strategy     string                       `json:"strategy,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (p Position) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("id", int64(p.Id)),
		zap.String("instrument", p.Instrument),
		zap.Stringer("direction", p.Direction),
		zap.String("size", p.Size.String()),
		zap.String("entry_price", p.EntryPrice.String()),
		zap.String("unrealized_pl", p.UnrealizedPL.String()),
		zap.String("margin", p.Margin.String()),
	}
}

// ClosedPosition is the realized part of a position. A partial close shares
// the id of the position it was taken from.
type ClosedPosition struct {
	Id           OrderId     `json:"id"`
	Instrument   string      `json:"instrument"`
	Direction    Direction   `json:"direction"`
	Size         fixed.Point `json:"size"`
	EntryPrice   fixed.Point `json:"entry_price"`
	EntryTime    time.Time   `json:"entry_time"`
	ExitPrice    fixed.Point `json:"exit_price"`
	ExitTime     time.Time   `json:"exit_time"`
	GrossPL      fixed.Point `json:"gross_pl"`
	Commission   fixed.Point `json:"commission"`
	NetProfit    fixed.Point `json:"net_profit"`
	BalanceAfter fixed.Point `json:"balance_after"`
	Partial      bool        `json:"partial"`
	Strategy     string      `json:"strategy,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (c ClosedPosition) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("id", int64(c.Id)),
		zap.String("instrument", c.Instrument),
		zap.Stringer("direction", c.Direction),
		zap.String("size", c.Size.String()),
		zap.String("entry_price", c.EntryPrice.String()),
		zap.String("exit_price", c.ExitPrice.String()),
		zap.String("net_profit", c.NetProfit.String()),
		zap.Bool("partial", c.Partial),
	}
}
