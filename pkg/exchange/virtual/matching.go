package virtual

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type matchAction uint8

const (
	actionFill matchAction = iota
	actionConvert
	actionClose
	actionReduce
)

type match struct {
	rec    *record
	action matchAction
	price  fixed.Point
}

// matchOrders decides what happens to each pending order of the bar's
// instrument. It does not mutate any state.
func (b *Broker) matchOrders(bar common.Bar) []match {
	var matches []match

	for _, rec := range b.book.pending(bar.Symbol) {
		order := rec.order
		if !order.TimeStamp.Before(bar.TimeStamp) {
			continue
		}

		switch t := order.Type.(type) {
		case common.Market:
			matches = append(matches, match{rec: rec, action: actionFill, price: bar.Open})
		case common.Limit:
			if (order.Direction == common.Long && bar.Low.Lt(t.Price)) ||
				(order.Direction == common.Short && bar.High.Gt(t.Price)) {
				matches = append(matches, match{rec: rec, action: actionFill, price: t.Price})
			}
		case common.StopLimit:
			if bar.Low.Lte(t.Stop) && bar.High.Gte(t.Stop) {
				matches = append(matches, match{rec: rec, action: actionConvert, price: t.Limit})
			}
		case common.Close:
			matches = append(matches, match{rec: rec, action: actionClose, price: bar.Open})
		case common.Reduce:
			matches = append(matches, match{rec: rec, action: actionReduce, price: bar.Open})
		}
	}

	return matches
}

func (b *Broker) applyMatches(bar common.Bar, matches []match) []error {
	var errs []error

	for _, m := range matches {
		switch m.action {
		case actionFill:
			b.openPosition(m.rec, m.price, bar)
		case actionConvert:
			m.rec.order.Type = common.Limit{Price: m.price}
			b.logger.Debug("stop limit triggered", m.rec.order.Fields()...)
		case actionClose:
			if err := b.executeClose(m.rec, m.price, bar); err != nil {
				errs = append(errs, b.violation(m.rec, err))
			}
		case actionReduce:
			order := m.rec.order
			if _, err := b.ReducePosition(order.Instrument, order.Direction, order.Size, m.price, bar.TimeStamp); err != nil {
				errs = append(errs, b.violation(m.rec, err))
			} else {
				b.book.consume(m.rec)
			}
		}
	}

	return errs
}

func (b *Broker) executeClose(rec *record, price fixed.Point, bar common.Bar) error {
	order := rec.order
	related := order.Type.(common.Close).Related

	target, err := b.openRecord(related)
	if err != nil {
		return err
	}
	if target.position.Instrument != order.Instrument {
		return fmt.Errorf("close %s position %d from %s: %w",
			target.position.Instrument, related, order.Instrument, ErrInstrumentMismatch)
	}

	if order.Size.IsPos() && order.Size.Lt(target.position.Size) {
		if _, err := b.PartialClose(related, order.Size, price, bar.TimeStamp); err != nil {
			return err
		}
	} else if _, err := b.ClosePosition(related, price, bar.TimeStamp); err != nil {
		return err
	}

	b.book.consume(rec)
	return nil
}

// violation cancels the instruction that broke a contract and wraps the error
// with its id.
func (b *Broker) violation(rec *record, err error) error {
	b.logger.Error("order instruction failed", append(rec.order.Fields(), zap.Error(err))...)
	b.cancel(rec, err.Error(), b.simulationTime)
	return fmt.Errorf("order %d: %w", rec.order.Id, err)
}

// openPosition admits a fill against the available margin and creates the
// position. Entry is shifted by half the spread against the trader and the
// spread cost is charged to the balance.
func (b *Broker) openPosition(rec *record, price fixed.Point, bar common.Bar) {
	order := rec.order
	hcf := order.ConversionFactor()
	pipSize := b.pipSize(order.Instrument)

	margin := order.Size.Mul(price).Mul(hcf).Div(b.leverage)

	b.UpdateMargin()
	if !margin.Lt(b.ledger.marginAvailable) {
		b.logger.Warn("insufficient margin",
			append(order.Fields(),
				zap.String("margin_required", margin.String()),
				zap.String("margin_available", b.ledger.marginAvailable.String()))...)
		b.cancel(rec, ReasonInsufficientMargin, bar.TimeStamp)
		return
	}

	dir := order.Direction.Sign()
	entry := price.Add(dir.Mul(b.spread).Mul(fixed.Half))

	position := common.Position{
		Id:           order.Id,
		Instrument:   order.Instrument,
		Direction:    order.Direction,
		Size:         order.Size,
		EntryPrice:   entry,
		EntryTime:    bar.TimeStamp,
		TakeProfit:   order.TakeProfit,
		LastPrice:    entry,
		LastTime:     bar.TimeStamp,
		UnrealizedPL: fixed.Zero,
		Margin:       margin,
		HCF:          hcf,
		Strategy:     order.Strategy,
		Source:       brokerComponentName,
		ExecutionId:  utility.GetExecutionID(),
		TimeStamp:    bar.TimeStamp,
	}

	if order.StopLoss.IsSome() {
		sl := order.StopLoss.Unwrap()
		position.StopKind = sl.Kind

		if sl.Price.IsSome() {
			position.StopLoss = sl.Price
		} else {
			distance := sl.Distance.Unwrap().Mul(pipSize)
			position.StopLoss = optional.Some(entry.Sub(dir.Mul(distance)))
		}

		if sl.Distance.IsSome() {
			position.StopDistance = optional.Some(sl.Distance.Unwrap().Mul(pipSize))
		} else {
			position.StopDistance = optional.Some(entry.Sub(position.StopLoss.Unwrap()).Abs())
		}
	}

	spreadCost := order.Size.Mul(b.spread).Mul(pipSize)
	if !spreadCost.IsZero() {
		b.realize(spreadCost.Neg())
	}

	b.book.fill(rec, position, price)
	b.UpdateMargin()

	b.logger.Debug("position opened", position.Fields()...)
	b.post(bus.PositionOpenEvent, position)
}
