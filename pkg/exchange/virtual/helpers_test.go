package virtual

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

const eurUsd = "EUR_USD"

var t0 = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func p(value string) fixed.Point {
	return fixed.MustFromString(value)
}

func at(minute int) time.Time {
	return t0.Add(time.Duration(minute) * time.Minute)
}

func bar(symbol string, minute int, open, high, low, last string) common.Bar {
	return common.Bar{
		Symbol:    symbol,
		TimeStamp: at(minute),
		Period:    time.Minute,
		Open:      p(open),
		High:      p(high),
		Low:       p(low),
		Close:     p(last),
	}
}

func market(dir common.Direction, size, price string) common.OrderRequest {
	return common.OrderRequest{
		Instrument: eurUsd,
		Direction:  dir,
		Size:       p(size),
		Type:       common.Market{},
		Price:      p(price),
		TimeStamp:  t0,
	}
}

func withStop(req common.OrderRequest, price string, kind common.StopKind) common.OrderRequest {
	req.StopLoss = optional.Some(common.StopLoss{Price: optional.Some(p(price)), Kind: kind})
	return req
}

func withStopDistance(req common.OrderRequest, pips string, kind common.StopKind) common.OrderRequest {
	req.StopLoss = optional.Some(common.StopLoss{Distance: optional.Some(p(pips)), Kind: kind})
	return req
}

func withTarget(req common.OrderRequest, price string) common.OrderRequest {
	req.TakeProfit = optional.Some(p(price))
	return req
}

func newTestBroker(t *testing.T, options ...Option) *Broker {
	t.Helper()
	b, err := NewBroker(options...)
	require.NoError(t, err)
	b.MakeDeposit(p("1000"))
	return b
}

func assertPoint(t *testing.T, want string, got fixed.Point) {
	t.Helper()
	assert.True(t, p(want).Eq(got), "want %s, got %s", want, got.String())
}

// assertLedger checks the NAV and margin identities against the open book.
func assertLedger(t *testing.T, b *Broker) {
	t.Helper()

	unrealized := fixed.Zero
	margin := fixed.Zero
	for _, pos := range b.OpenPositions() {
		unrealized = unrealized.Add(pos.UnrealizedPL)
		margin = margin.Add(pos.Margin)
	}

	acc := b.Account()
	assert.True(t, acc.NAV.Eq(acc.Balance.Add(unrealized)), "nav %s != balance %s + unrealized %s", acc.NAV, acc.Balance, unrealized)
	assert.True(t, acc.UnrealizedPL.Eq(unrealized), "unrealized %s != %s", acc.UnrealizedPL, unrealized)
	assert.True(t, acc.MarginAvailable.Eq(acc.Balance.Sub(margin)), "margin available %s != balance %s - margin %s", acc.MarginAvailable, acc.Balance, margin)
}

func requireState(t *testing.T, b *Broker, id common.OrderId, want OrderState) {
	t.Helper()
	state, err := b.State(id)
	require.NoError(t, err)
	require.Equal(t, want, state, "order %d", id)
}
