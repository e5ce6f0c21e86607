package virtual

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

func TestVirtualBroker_AddFundsAndDeposit(t *testing.T) {
	b, err := NewBroker()
	require.NoError(t, err)

	b.MakeDeposit(p("1000"))
	acc := b.Account()
	assertPoint(t, "1000", acc.Balance)
	assertPoint(t, "1000", acc.NAV)
	assertPoint(t, "1000", acc.PeakValue)
	assertPoint(t, "1000", acc.LowValue)

	b.AddFunds(p("50"))
	acc = b.Account()
	assertPoint(t, "1050", acc.Balance)
	assertPoint(t, "1000", acc.NAV)

	// only the first deposit seeds the trackers
	b.MakeDeposit(p("500"))
	acc = b.Account()
	assertPoint(t, "1550", acc.Balance)
	assertPoint(t, "1500", acc.NAV)
	assertPoint(t, "1000", acc.PeakValue)
}

func TestVirtualBroker_Drawdown(t *testing.T) {
	b := newTestBroker(t)

	steps := []struct {
		pnl  string
		peak string
		low  string
		max  string
	}{
		{"-100", "1000", "900", "-10"},
		{"50", "1000", "900", "-10"},
		{"150", "1100", "1100", "-10"},
		{"-330", "1100", "770", "-30"},
		{"10", "1100", "770", "-30"},
	}

	for _, step := range steps {
		b.realize(p(step.pnl))
		acc := b.Account()
		assertPoint(t, step.peak, acc.PeakValue)
		assertPoint(t, step.low, acc.LowValue)
		assertPoint(t, step.max, acc.MaxDrawdown)
	}
}

func TestVirtualBroker_DrawdownWithoutDeposit(t *testing.T) {
	b, err := NewBroker()
	require.NoError(t, err)

	b.realize(p("-5"))
	assertPoint(t, "0", b.Account().MaxDrawdown)
}

func TestVirtualBroker_UpdateMarginIdempotent(t *testing.T) {
	b := newTestBroker(t)
	b.PlaceOrder(market(common.Long, "10", "1.2000"))
	b.PlaceOrder(market(common.Short, "7", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2010", "1.2020", "1.2000", "1.2010")))

	b.UpdateMargin()
	first := b.Account().MarginAvailable
	for i := 0; i < 5; i++ {
		b.UpdateMargin()
		assert.True(t, first.Eq(b.Account().MarginAvailable))
	}
	assertPoint(t, "979.583", first)
}

func TestVirtualBroker_ProfitableTrades(t *testing.T) {
	b := newTestBroker(t)
	winner := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	loser := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2000", "1.2000", "1.2000")))

	_, err := b.ClosePosition(winner, p("1.2010"), at(2))
	require.NoError(t, err)
	_, err = b.ClosePosition(loser, p("1.1990"), at(2))
	require.NoError(t, err)

	acc := b.Account()
	assert.Equal(t, 2, acc.TotalTrades)
	assert.Equal(t, 1, acc.ProfitableTrades)
	assertPoint(t, "1000", acc.Balance)
}

// randomSession drives a broker through a seeded sequence of bars and orders
// on two instruments and checks the ledger identities after every bar.
func randomSession(t *testing.T, seed int64) *Broker {
	t.Helper()
	b := newTestBroker(t, WithCommission(p("0.05")), WithSpread(p("0.0001")), WithLeverage(p("20")))
	rng := rand.New(rand.NewSource(seed))

	prices := map[string]fixed.Point{eurUsd: p("1.2000"), "GBP_USD": p("1.3000")}
	symbols := []string{eurUsd, "GBP_USD"}
	step := p("0.0001")

	for minute := 1; minute <= 300; minute++ {
		for _, symbol := range symbols {
			if rng.Intn(4) == 0 {
				dir := common.Long
				if rng.Intn(2) == 0 {
					dir = common.Short
				}
				price := prices[symbol]
				req := common.OrderRequest{
					Instrument: symbol,
					Direction:  dir,
					Size:       fixed.FromInt(1+rng.Intn(100), 0),
					Type:       common.Market{},
					Price:      price,
					TimeStamp:  at(minute - 1),
				}
				distance := fixed.FromInt(5+rng.Intn(30), 0)
				req = withStopDistance(req, distance.String(), common.StopKind(rng.Intn(2)))
				if rng.Intn(2) == 0 {
					req = withTarget(req, price.Add(dir.Sign().Mul(distance).Mul(step)).String())
				}
				b.PlaceOrder(req)
			}

			open := prices[symbol]
			moves := []fixed.Point{
				fixed.FromInt(rng.Intn(21)-10, 0).Mul(step),
				fixed.FromInt(rng.Intn(11), 0).Mul(step),
				fixed.FromInt(rng.Intn(11), 0).Mul(step),
			}
			last := open.Add(moves[0])
			high := open.Max(last).Add(moves[1])
			low := open.Min(last).Sub(moves[2])
			prices[symbol] = last

			require.NoError(t, b.ProcessBar(common.Bar{
				Symbol:    symbol,
				TimeStamp: at(minute),
				Open:      open,
				High:      high,
				Low:       low,
				Close:     last,
			}))
			assertLedger(t, b)
		}

		if minute%50 == 0 {
			for _, pos := range b.OpenPositions(eurUsd) {
				if pos.Size.Gt(fixed.One) {
					_, err := b.PartialClose(pos.Id, fixed.One, fixed.Zero, at(minute))
					require.NoError(t, err)
					assertLedger(t, b)
					break
				}
			}
		}
	}

	b.CloseAllPositions(at(301))
	assertLedger(t, b)
	return b
}

func TestVirtualBroker_LedgerIdentitiesHold(t *testing.T) {
	b := randomSession(t, 7)

	acc := b.Account()
	assert.Empty(t, b.OpenPositions())
	assert.True(t, acc.NAV.Eq(acc.Balance))
	assert.NotEmpty(t, b.ClosedPositions())

	// every id ends in exactly one terminal registry
	seen := map[common.OrderId]bool{}
	for _, c := range b.CancelledOrders() {
		assert.False(t, seen[c.Id], "order %d cancelled twice", c.Id)
		seen[c.Id] = true
	}
	for _, c := range b.ClosedPositions() {
		state, err := b.State(c.Id)
		require.NoError(t, err)
		assert.Equal(t, StateClosed, state)
		assert.False(t, seen[c.Id], "order %d closed and cancelled", c.Id)
	}
}

func TestVirtualBroker_Deterministic(t *testing.T) {
	first := randomSession(t, 42)
	second := randomSession(t, 42)

	assert.Equal(t, first.ClosedPositions(), second.ClosedPositions())
	assert.Equal(t, first.CancelledOrders(), second.CancelledOrders())
	assert.True(t, first.Account().Balance.Eq(second.Account().Balance))
}
