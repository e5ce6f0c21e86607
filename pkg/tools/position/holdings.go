package position

import (
	"context"
	"errors"
	"sort"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

var (
	ErrPosNotFound = errors.New("position is not found")
)

// Holding is the open exposure of one instrument.
type Holding struct {
	Instrument   string           `json:"instrument"`
	LongUnits    fixed.Point      `json:"long_units"`
	ShortUnits   fixed.Point      `json:"short_units"`
	UnrealizedPL fixed.Point      `json:"unrealized_pl"`
	Margin       fixed.Point      `json:"margin"`
	OrderIds     []common.OrderId `json:"order_ids"`
}

// NetUnits is long minus short units.
func (h Holding) NetUnits() fixed.Point {
	return h.LongUnits.Sub(h.ShortUnits)
}

// Aggregate groups positions per instrument. Holdings are ordered by
// instrument and order ids keep the order of the input.
func Aggregate(positions []common.Position) []Holding {
	index := make(map[string]int)
	var holdings []Holding

	for _, p := range positions {
		idx, ok := index[p.Instrument]
		if !ok {
			idx = len(holdings)
			index[p.Instrument] = idx
			holdings = append(holdings, Holding{
				Instrument:   p.Instrument,
				LongUnits:    fixed.Zero,
				ShortUnits:   fixed.Zero,
				UnrealizedPL: fixed.Zero,
				Margin:       fixed.Zero,
			})
		}

		h := &holdings[idx]
		if p.Direction == common.Long {
			h.LongUnits = h.LongUnits.Add(p.Size)
		} else {
			h.ShortUnits = h.ShortUnits.Add(p.Size)
		}
		h.UnrealizedPL = h.UnrealizedPL.Add(p.UnrealizedPL)
		h.Margin = h.Margin.Add(p.Margin)
		h.OrderIds = append(h.OrderIds, p.Id)
	}

	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].Instrument < holdings[j].Instrument
	})
	return holdings
}

// Holdings mirrors the open positions of a broker from its router events.
type Holdings struct {
	positions []common.Position
}

func NewHoldings() *Holdings {
	return &Holdings{}
}

func (h *Holdings) OnPositionOpen(_ context.Context, p common.Position) {
	h.positions = append(h.positions, p)
}

// OnPositionClose removes the position, or shrinks it when the close was partial.
func (h *Holdings) OnPositionClose(_ context.Context, c common.ClosedPosition) {
	for idx := range h.positions {
		position := &h.positions[idx]
		if position.Id != c.Id {
			continue
		}
		if c.Partial {
			position.Size = position.Size.Sub(c.Size)
			if position.Size.IsPos() {
				return
			}
		}
		h.positions = append(h.positions[:idx], h.positions[idx+1:]...)
		return
	}
}

func (h *Holdings) OnPositionUpdate(_ context.Context, p common.Position) {
	for idx := range h.positions {
		position := &h.positions[idx]
		if position.Id == p.Id {
			*position = p
			break
		}
	}
}

func (h *Holdings) Count() int {
	return len(h.positions)
}

func (h *Holdings) Find(id common.OrderId) (common.Position, error) {
	for _, position := range h.positions {
		if position.Id == id {
			return position, nil
		}
	}
	return common.Position{}, ErrPosNotFound
}

func (h *Holdings) Aggregate() []Holding {
	return Aggregate(h.positions)
}
