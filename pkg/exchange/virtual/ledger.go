package virtual

import (
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

type ledger struct {
	balance         fixed.Point
	marginUsed      fixed.Point
	marginAvailable fixed.Point
	unrealized      fixed.Point
	nav             fixed.Point

	deposited   bool
	peak        fixed.Point
	low         fixed.Point
	maxDrawdown fixed.Point

	totalTrades      int
	profitableTrades int
}

func newLedger() ledger {
	return ledger{
		balance:         fixed.Zero,
		marginUsed:      fixed.Zero,
		marginAvailable: fixed.Zero,
		unrealized:      fixed.Zero,
		nav:             fixed.Zero,
		peak:            fixed.Zero,
		low:             fixed.Zero,
		maxDrawdown:     fixed.Zero,
	}
}

// updateDrawdown tracks the running peak and trough of the balance. The
// maximum drawdown is the most negative percentage seen so far.
func (l *ledger) updateDrawdown() {
	if l.balance.Gt(l.peak) {
		l.peak = l.balance
		l.low = l.balance
	} else if l.balance.Lt(l.low) {
		l.low = l.balance
	}

	if l.peak.IsZero() {
		return
	}

	drawdown := fixed.Hundred.Mul(l.low.Sub(l.peak)).Div(l.peak)
	l.maxDrawdown = l.maxDrawdown.Min(drawdown)
}

func (l *ledger) snapshot() common.Account {
	return common.Account{
		Balance:          l.balance,
		MarginUsed:       l.marginUsed,
		MarginAvailable:  l.marginAvailable,
		UnrealizedPL:     l.unrealized,
		NAV:              l.nav,
		PeakValue:        l.peak,
		LowValue:         l.low,
		MaxDrawdown:      l.maxDrawdown,
		TotalTrades:      l.totalTrades,
		ProfitableTrades: l.profitableTrades,
	}
}

// AddFunds changes the balance only.
func (b *Broker) AddFunds(amount fixed.Point) {
	b.ledger.balance = b.ledger.balance.Add(amount)
}

// MakeDeposit changes balance and NAV. The first deposit also seeds the
// drawdown trackers.
func (b *Broker) MakeDeposit(amount fixed.Point) {
	b.ledger.balance = b.ledger.balance.Add(amount)
	b.ledger.nav = b.ledger.nav.Add(amount)

	if !b.ledger.deposited {
		b.ledger.deposited = true
		b.ledger.peak = amount
		b.ledger.low = amount
	}
}

// UpdateMargin recomputes used and available margin from the open positions.
func (b *Broker) UpdateMargin() {
	used := fixed.Zero
	for _, rec := range b.book.open() {
		used = used.Add(rec.position.Margin)
	}
	b.ledger.marginUsed = used
	b.ledger.marginAvailable = b.ledger.balance.Sub(used)
}

// updateEquity recomputes unrealized P/L over every instrument and NAV.
func (b *Broker) updateEquity() {
	unrealized := fixed.Zero
	for _, rec := range b.book.open() {
		unrealized = unrealized.Add(rec.position.UnrealizedPL)
	}
	b.ledger.unrealized = unrealized
	b.ledger.nav = b.ledger.balance.Add(unrealized)
}

func (b *Broker) realize(amount fixed.Point) {
	b.ledger.balance = b.ledger.balance.Add(amount)
	b.ledger.updateDrawdown()
}
