package virtual

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

type exit struct {
	rec      *record
	stopLoss optional.Option[fixed.Point]
	hit      bool
	price    fixed.Point
}

// evaluatePositions computes the trailing stop and the exit of every open
// position of the bar's instrument without mutating them.
func (b *Broker) evaluatePositions(bar common.Bar) []exit {
	var exits []exit

	for _, rec := range b.book.open(bar.Symbol) {
		p := rec.position
		e := exit{rec: rec, stopLoss: p.StopLoss}

		if p.StopKind == common.StopKindTrailing && p.StopLoss.IsSome() && p.StopDistance.IsSome() {
			e.stopLoss = optional.Some(trail(p.Direction, p.StopLoss.Unwrap(), p.StopDistance.Unwrap(), bar))
		}

		e.hit, e.price = exitPrice(p.Direction, e.stopLoss, p.TakeProfit, bar)
		exits = append(exits, e)
	}

	return exits
}

// trail moves the stop towards the price by distance. It never moves it back.
func trail(dir common.Direction, stop, distance fixed.Point, bar common.Bar) fixed.Point {
	if dir == common.Long {
		return stop.Max(bar.High.Sub(distance))
	}
	return stop.Min(bar.Low.Add(distance))
}

// exitPrice checks the stop loss before the take profit.
func exitPrice(dir common.Direction, sl, tp optional.Option[fixed.Point], bar common.Bar) (bool, fixed.Point) {
	if dir == common.Long {
		if sl.IsSome() && bar.Low.Lt(sl.Unwrap()) {
			return true, sl.Unwrap()
		}
		if tp.IsSome() && bar.High.Gt(tp.Unwrap()) {
			return true, tp.Unwrap()
		}
		return false, fixed.Zero
	}

	if sl.IsSome() && bar.High.Gt(sl.Unwrap()) {
		return true, sl.Unwrap()
	}
	if tp.IsSome() && bar.Low.Lt(tp.Unwrap()) {
		return true, tp.Unwrap()
	}
	return false, fixed.Zero
}

func (b *Broker) applyExits(bar common.Bar, exits []exit) {
	for _, e := range exits {
		p := &e.rec.position
		p.StopLoss = e.stopLoss

		if e.hit {
			b.closeUnits(e.rec, p.Size, e.price, bar.TimeStamp)
			continue
		}

		p.UnrealizedPL = p.Direction.Sign().Mul(p.Size).Mul(bar.Close.Sub(p.EntryPrice)).Mul(p.HCF)
		p.LastPrice = bar.Close
		p.LastTime = bar.TimeStamp
		p.TimeStamp = bar.TimeStamp

		b.post(bus.PositionUpdateEvent, *p)
	}
}

// ClosePosition closes the whole position opened by id. A zero price closes
// at the last observed price.
func (b *Broker) ClosePosition(id common.OrderId, price fixed.Point, ts time.Time) (common.ClosedPosition, error) {
	rec, err := b.openRecord(id)
	if err != nil {
		return common.ClosedPosition{}, err
	}

	closed := b.closeUnits(rec, rec.position.Size, b.exitOrLast(rec, price), ts)
	b.book.compact()
	return closed, nil
}

// PartialClose closes units of the position opened by id. The rest stays open
// under the same id.
func (b *Broker) PartialClose(id common.OrderId, units, price fixed.Point, ts time.Time) (common.ClosedPosition, error) {
	rec, err := b.openRecord(id)
	if err != nil {
		return common.ClosedPosition{}, err
	}
	if !units.IsPos() {
		return common.ClosedPosition{}, fmt.Errorf("partial close of %d by %s: %w", id, units, ErrInvalidSize)
	}
	if units.Gt(rec.position.Size) {
		return common.ClosedPosition{}, fmt.Errorf("partial close of %d by %s, open %s: %w",
			id, units, rec.position.Size, ErrInsufficientOpenSize)
	}

	closed := b.closeUnits(rec, units, b.exitOrLast(rec, price), ts)
	b.book.compact()
	return closed, nil
}

// ReducePosition closes units of exposure opposite to dir on the instrument,
// oldest position first. Nothing is closed when the open opposite size is
// smaller than units. A zero price closes each position at its last observed
// price.
func (b *Broker) ReducePosition(instrument string, dir common.Direction, units, price fixed.Point, ts time.Time) ([]common.ClosedPosition, error) {
	if !units.IsPos() {
		return nil, fmt.Errorf("reduce %s by %s: %w", instrument, units, ErrInvalidSize)
	}

	var candidates []*record
	available := fixed.Zero
	for _, rec := range b.book.open(instrument) {
		if rec.position.Direction == dir.Opposite() {
			candidates = append(candidates, rec)
			available = available.Add(rec.position.Size)
		}
	}

	if available.Lt(units) {
		return nil, fmt.Errorf("reduce %s %s by %s, open %s: %w",
			instrument, dir.Opposite(), units, available, ErrInsufficientOpenSize)
	}

	var out []common.ClosedPosition
	remaining := units
	for _, rec := range candidates {
		if !remaining.IsPos() {
			break
		}
		size := rec.position.Size.Min(remaining)
		out = append(out, b.closeUnits(rec, size, b.exitOrLast(rec, price), ts))
		remaining = remaining.Sub(size)
	}

	b.book.compact()
	return out, nil
}

func (b *Broker) openRecord(id common.OrderId) (*record, error) {
	rec, ok := b.book.get(id)
	if !ok {
		return nil, fmt.Errorf("position %d: %w", id, ErrUnknownOrder)
	}
	if rec.state != StateOpen {
		return nil, fmt.Errorf("position %d in state %s: %w", id, rec.state, ErrNotOpen)
	}
	return rec, nil
}

func (b *Broker) exitOrLast(rec *record, price fixed.Point) fixed.Point {
	if price.IsZero() {
		return rec.position.LastPrice
	}
	return price
}

// closeUnits realizes units of a position at price. Commission is charged on
// the notional of both legs.
func (b *Broker) closeUnits(rec *record, units, price fixed.Point, ts time.Time) common.ClosedPosition {
	p := &rec.position
	full := units.Gte(p.Size)

	entryNotional := units.Mul(p.EntryPrice).Mul(p.HCF)
	exitNotional := units.Mul(price).Mul(p.HCF)

	gross := p.Direction.Sign().Mul(units).Mul(price.Sub(p.EntryPrice)).Mul(p.HCF)
	commission := b.commission.Div(fixed.Hundred).Mul(entryNotional.Add(exitNotional))
	net := gross.Sub(commission)

	b.realize(net)
	if net.IsPos() {
		b.ledger.profitableTrades++
	}

	closed := common.ClosedPosition{
		Id:           p.Id,
		Instrument:   p.Instrument,
		Direction:    p.Direction,
		Size:         units,
		EntryPrice:   p.EntryPrice,
		EntryTime:    p.EntryTime,
		ExitPrice:    price,
		ExitTime:     ts,
		GrossPL:      gross,
		Commission:   commission,
		NetProfit:    net,
		BalanceAfter: b.ledger.balance,
		Partial:      !full,
		Strategy:     p.Strategy,
		Source:       brokerComponentName,
		ExecutionId:  utility.GetExecutionID(),
		TimeStamp:    ts,
	}
	b.book.recordClose(closed)

	if full {
		p.UnrealizedPL = fixed.Zero
		b.book.consume(rec)
	} else {
		p.Size = p.Size.Sub(units)
		p.Margin = p.Size.Mul(rec.marginPrice).Mul(p.HCF).Div(b.leverage)
		p.UnrealizedPL = p.Direction.Sign().Mul(p.Size).Mul(p.LastPrice.Sub(p.EntryPrice)).Mul(p.HCF)
	}

	b.UpdateMargin()
	b.updateEquity()

	b.logger.Debug("position closed", closed.Fields()...)
	b.post(bus.PositionCloseEvent, closed)
	return closed
}
