package virtual

import (
	"slices"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

type OrderState uint8

const (
	StatePending OrderState = iota
	StateOpen
	StateClosed
	StateCancelled
)

func (s OrderState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// record is the single home of an order id. The state tag decides which
// registry the id belongs to.
type record struct {
	state    OrderState
	order    common.PendingOrder
	position common.Position

	// price the margin of the position is computed from
	marginPrice fixed.Point
}

type book struct {
	lastId  common.OrderId
	records map[common.OrderId]*record

	// pending and open ids in insertion order
	active []common.OrderId

	closed    []common.ClosedPosition
	cancelled []common.CancelledOrder
}

func newBook() *book {
	return &book{
		records: make(map[common.OrderId]*record),
	}
}

func (b *book) add(req common.OrderRequest) *record {
	b.lastId++
	rec := &record{
		state: StatePending,
		order: common.PendingOrder{Id: b.lastId, OrderRequest: req},
	}
	b.records[rec.order.Id] = rec
	b.active = append(b.active, rec.order.Id)
	return rec
}

func (b *book) get(id common.OrderId) (*record, bool) {
	rec, ok := b.records[id]
	return rec, ok
}

func (b *book) collect(state OrderState, instruments []string) []*record {
	var out []*record
	for _, id := range b.active {
		rec := b.records[id]
		if rec.state != state {
			continue
		}
		if len(instruments) > 0 && !slices.Contains(instruments, rec.order.Instrument) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (b *book) pending(instruments ...string) []*record {
	return b.collect(StatePending, instruments)
}

func (b *book) open(instruments ...string) []*record {
	return b.collect(StateOpen, instruments)
}

func (b *book) fill(rec *record, position common.Position, marginPrice fixed.Point) {
	rec.state = StateOpen
	rec.position = position
	rec.marginPrice = marginPrice
}

func (b *book) cancel(rec *record, reason string, ts time.Time) common.CancelledOrder {
	rec.state = StateCancelled
	cancelled := common.CancelledOrder{
		PendingOrder: rec.order,
		Reason:       reason,
		CancelledAt:  ts,
	}
	b.cancelled = append(b.cancelled, cancelled)
	return cancelled
}

// consume retires a control instruction or a fully closed position.
func (b *book) consume(rec *record) {
	rec.state = StateClosed
}

func (b *book) recordClose(closed common.ClosedPosition) {
	b.closed = append(b.closed, closed)
}

// compact drops terminal ids from the active list.
func (b *book) compact() {
	n := 0
	for _, id := range b.active {
		if s := b.records[id].state; s == StatePending || s == StateOpen {
			b.active[n] = id
			n++
		}
	}
	clear(b.active[n:])
	b.active = b.active[:n]
}
