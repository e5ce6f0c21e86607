package virtual

import (
	"fmt"
	"slices"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/tools/position"
)

// PendingOrders returns the pending orders in id order, optionally only those
// of the given instruments.
func (b *Broker) PendingOrders(instruments ...string) []common.PendingOrder {
	recs := b.book.pending(instruments...)
	out := make([]common.PendingOrder, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.order)
	}
	return out
}

func (b *Broker) OpenPositions(instruments ...string) []common.Position {
	recs := b.book.open(instruments...)
	out := make([]common.Position, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.position)
	}
	return out
}

// Holdings aggregates the open positions per instrument.
func (b *Broker) Holdings() []position.Holding {
	return position.Aggregate(b.OpenPositions())
}

func (b *Broker) ClosedPositions() []common.ClosedPosition {
	return slices.Clone(b.book.closed)
}

func (b *Broker) CancelledOrders() []common.CancelledOrder {
	return slices.Clone(b.book.cancelled)
}

func (b *Broker) Account() common.Account {
	return b.ledger.snapshot()
}

// State reports which registry an order id currently lives in.
func (b *Broker) State(id common.OrderId) (OrderState, error) {
	rec, ok := b.book.get(id)
	if !ok {
		return 0, fmt.Errorf("order %d: %w", id, ErrUnknownOrder)
	}
	return rec.state, nil
}
