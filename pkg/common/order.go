package common

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type OrderId int64

type OrderKind int

const (
	OrderKindMarket OrderKind = iota
	OrderKindLimit
	OrderKindStopLimit
	OrderKindClose
	OrderKindReduce
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindMarket:
		return "market"
	case OrderKindLimit:
		return "limit"
	case OrderKindStopLimit:
		return "stop-limit"
	case OrderKindClose:
		return "close"
	case OrderKindReduce:
		return "reduce"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k OrderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OrderType is one of Market, Limit, StopLimit, Close or Reduce.
type OrderType interface {
	Kind() OrderKind
	orderType()
}

type Market struct{}

type Limit struct {
	Price fixed.Point `json:"price"`
}

// StopLimit becomes a Limit at Limit once a bar range touches Stop.
type StopLimit struct {
	Stop  fixed.Point `json:"stop"`
	Limit fixed.Point `json:"limit"`
}

// Close closes the position opened by Related. A zero request size closes
// all of it.
type Close struct {
	Related OrderId `json:"related"`
}

// Reduce closes opposite direction exposure on the instrument, oldest first.
type Reduce struct{}

func (Market) Kind() OrderKind    { return OrderKindMarket }
func (Limit) Kind() OrderKind     { return OrderKindLimit }
func (StopLimit) Kind() OrderKind { return OrderKindStopLimit }
func (Close) Kind() OrderKind     { return OrderKindClose }
func (Reduce) Kind() OrderKind    { return OrderKindReduce }

// The variants encode with a "kind" member so that Market and Reduce stay
// distinguishable in JSON output.

func (o Market) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind OrderKind `json:"kind"`
	}{o.Kind()})
}

func (o Limit) MarshalJSON() ([]byte, error) {
	type limit Limit
	return json.Marshal(struct {
		Kind OrderKind `json:"kind"`
		limit
	}{o.Kind(), limit(o)})
}

func (o StopLimit) MarshalJSON() ([]byte, error) {
	type stopLimit StopLimit
	return json.Marshal(struct {
		Kind OrderKind `json:"kind"`
		stopLimit
	}{o.Kind(), stopLimit(o)})
}

func (o Close) MarshalJSON() ([]byte, error) {
	type closeOrder Close
	return json.Marshal(struct {
		Kind OrderKind `json:"kind"`
		closeOrder
	}{o.Kind(), closeOrder(o)})
}

func (o Reduce) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind OrderKind `json:"kind"`
	}{o.Kind()})
}

func (Market) orderType()    {}
func (Limit) orderType()     {}
func (StopLimit) orderType() {}
func (Close) orderType()     {}
func (Reduce) orderType()    {}

type StopKind int

const (
	StopKindFixed StopKind = iota
	StopKindTrailing
)

func (k StopKind) String() string {
	if k == StopKindTrailing {
		return "trailing"
	}
	return "fixed"
}

// StopLoss is placed either at an absolute Price or at Distance pips from
// the entry. When both are set Price wins for placement and Distance drives
// trailing.
type StopLoss struct {
	Price    optional.Option[fixed.Point] `json:"price"`
	Distance optional.Option[fixed.Point] `json:"distance"`
	Kind     StopKind                     `json:"kind"`
}

type OrderRequest struct {
	Instrument string                       `json:"instrument"`
	Direction  Direction                    `json:"direction"`
	Size       fixed.Point                  `json:"size"`
	Type       OrderType                    `json:"type"`
	Price      fixed.Point                  `json:"price"`
	StopLoss   optional.Option[StopLoss]    `json:"stop_loss"`
	TakeProfit optional.Option[fixed.Point] `json:"take_profit"`
	HCF        fixed.Point                  `json:"hcf"`
	Strategy   string                       `json:"strategy,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// ConversionFactor returns HCF, treating an unset factor as 1.
func (r OrderRequest) ConversionFactor() fixed.Point {
	if r.HCF.IsZero() {
		return fixed.One
	}
	return r.HCF
}

func (r OrderRequest) Kind() OrderKind {
	if r.Type == nil {
		return OrderKindMarket
	}
	return r.Type.Kind()
}

func (r OrderRequest) Fields() []zap.Field {
	return []zap.Field{
		zap.String("instrument", r.Instrument),
		zap.Stringer("direction", r.Direction),
		zap.Stringer("kind", r.Kind()),
		zap.String("size", r.Size.String()),
		zap.String("price", r.Price.String()),
		zap.String("strategy", r.Strategy),
	}
}

type PendingOrder struct {
	Id OrderId `json:"id"`
	OrderRequest
}

func (o PendingOrder) Fields() []zap.Field {
	return append([]zap.Field{zap.Int64("id", int64(o.Id))}, o.OrderRequest.Fields()...)
}

type CancelledOrder struct {
	PendingOrder
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (c CancelledOrder) Fields() []zap.Field {
	return append(c.PendingOrder.Fields(), zap.String("reason", c.Reason), zap.Time("cancelled_at", c.CancelledAt))
}
