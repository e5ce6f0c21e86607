package virtual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

func TestVirtualBroker_MarketFill(t *testing.T) {
	b := newTestBroker(t, WithLeverage(fixed.One))

	id := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2010", "1.2020", "1.2000", "1.2010")))

	positions := b.OpenPositions(eurUsd)
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, id, pos.Id)
	assert.Equal(t, common.Long, pos.Direction)
	assertPoint(t, "10", pos.Size)
	assertPoint(t, "1.2010", pos.EntryPrice)
	assertPoint(t, "12.01", pos.Margin)
	assert.Equal(t, at(1), pos.EntryTime)

	acc := b.Account()
	assertPoint(t, "12.01", acc.MarginUsed)
	assertPoint(t, "987.99", acc.MarginAvailable)
	assertPoint(t, "1000", acc.NAV)
	requireState(t, b, id, StateOpen)
	assert.Empty(t, b.PendingOrders())
	assertLedger(t, b)
}

func TestVirtualBroker_MarketNeverFillsOnPlacementBar(t *testing.T) {
	b := newTestBroker(t)

	req := market(common.Long, "10", "1.2000")
	req.TimeStamp = at(1)
	id := b.PlaceOrder(req)

	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2010", "1.2020", "1.2000", "1.2010")))
	requireState(t, b, id, StatePending)

	require.NoError(t, b.ProcessBar(bar(eurUsd, 2, "1.2012", "1.2020", "1.2000", "1.2010")))
	requireState(t, b, id, StateOpen)
	assertPoint(t, "1.2012", b.OpenPositions()[0].EntryPrice)
}

func TestVirtualBroker_OtherInstrumentUntouched(t *testing.T) {
	b := newTestBroker(t)

	id := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	require.NoError(t, b.ProcessBar(bar("GBP_USD", 1, "1.3000", "1.3010", "1.2990", "1.3000")))
	requireState(t, b, id, StatePending)
	assert.Len(t, b.PendingOrders(eurUsd), 1)
	assert.Empty(t, b.PendingOrders("GBP_USD"))
}

func TestVirtualBroker_Spread(t *testing.T) {
	tests := []struct {
		name      string
		direction common.Direction
		entry     string
	}{
		{"long pays the ask", common.Long, "1.2011"},
		{"short receives the bid", common.Short, "1.2009"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBroker(t, WithSpread(p("0.0002")))

			b.PlaceOrder(market(tt.direction, "10", "1.2000"))
			require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2010", "1.2010", "1.2010", "1.2010")))

			pos := b.OpenPositions()[0]
			assertPoint(t, tt.entry, pos.EntryPrice)
			assertPoint(t, "12.01", pos.Margin)
			// 10 units * 0.0002 spread * 0.0001 pip
			assertPoint(t, "999.999998", b.Account().Balance)
			assertLedger(t, b)
		})
	}
}

func TestVirtualBroker_LimitOrder(t *testing.T) {
	tests := []struct {
		name      string
		direction common.Direction
		limit     string
		miss      common.Bar
		hit       common.Bar
	}{
		{
			name:      "long below market",
			direction: common.Long,
			limit:     "1.1990",
			miss:      bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2000"),
			hit:       bar(eurUsd, 2, "1.2000", "1.2005", "1.1980", "1.1985"),
		},
		{
			name:      "short above market",
			direction: common.Short,
			limit:     "1.2010",
			miss:      bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2000"),
			hit:       bar(eurUsd, 2, "1.2000", "1.2020", "1.1995", "1.2015"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBroker(t)

			req := market(tt.direction, "10", "0")
			req.Type = common.Limit{Price: p(tt.limit)}
			id := b.PlaceOrder(req)

			require.NoError(t, b.ProcessBar(tt.miss))
			requireState(t, b, id, StatePending)

			require.NoError(t, b.ProcessBar(tt.hit))
			requireState(t, b, id, StateOpen)
			pos := b.OpenPositions()[0]
			assertPoint(t, tt.limit, pos.EntryPrice)
			assertLedger(t, b)
		})
	}
}

func TestVirtualBroker_StopLimitConvertsThenFills(t *testing.T) {
	b := newTestBroker(t)

	req := market(common.Long, "10", "0")
	req.Type = common.StopLimit{Stop: p("1.2020"), Limit: p("1.2010")}
	id := b.PlaceOrder(req)

	// the range does not reach the stop
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2015", "1.1995", "1.2010")))
	pending := b.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, common.OrderKindStopLimit, pending[0].Kind())

	// touched: converted in place, not filled even though low is under the limit
	require.NoError(t, b.ProcessBar(bar(eurUsd, 2, "1.2010", "1.2030", "1.2000", "1.2025")))
	pending = b.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].Id)
	assert.Equal(t, common.Limit{Price: p("1.2010")}, pending[0].Type)
	assert.Empty(t, b.OpenPositions())

	require.NoError(t, b.ProcessBar(bar(eurUsd, 3, "1.2020", "1.2025", "1.2005", "1.2010")))
	requireState(t, b, id, StateOpen)
	assertPoint(t, "1.2010", b.OpenPositions()[0].EntryPrice)
}

func TestVirtualBroker_InsufficientMargin(t *testing.T) {
	tests := []struct {
		name    string
		deposit string
		size    string
	}{
		{"margin above balance", "1000", "1000"},
		{"margin equal to available", "12.01", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBroker()
			require.NoError(t, err)
			b.MakeDeposit(p(tt.deposit))

			id := b.PlaceOrder(market(common.Long, tt.size, "1.2000"))
			require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2010", "1.2020", "1.2000", "1.2010")))

			requireState(t, b, id, StateCancelled)
			cancelled := b.CancelledOrders()
			require.Len(t, cancelled, 1)
			assert.Equal(t, ReasonInsufficientMargin, cancelled[0].Reason)
			assert.Empty(t, b.OpenPositions())
			assertPoint(t, tt.deposit, b.Account().Balance)
		})
	}
}

func TestVirtualBroker_LeverageAndConversion(t *testing.T) {
	b := newTestBroker(t, WithLeverage(p("10")))

	req := market(common.Long, "1000", "1.2000")
	req.HCF = p("0.5")
	b.PlaceOrder(req)
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2010")))

	pos := b.OpenPositions()[0]
	// 1000 * 1.2 * 0.5 / 10
	assertPoint(t, "60", pos.Margin)
	// 1000 * 0.0010 * 0.5
	assertPoint(t, "0.5", pos.UnrealizedPL)
	assertLedger(t, b)
}

func TestVirtualBroker_CloseInstruction(t *testing.T) {
	b := newTestBroker(t)

	id := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2005")))

	closeId := b.PlaceOrder(common.OrderRequest{
		Instrument: eurUsd,
		Direction:  common.Short,
		Type:       common.Close{Related: id},
		TimeStamp:  at(1),
	})
	require.NoError(t, b.ProcessBar(bar(eurUsd, 2, "1.2020", "1.2030", "1.2010", "1.2025")))

	requireState(t, b, id, StateClosed)
	requireState(t, b, closeId, StateClosed)
	closed := b.ClosedPositions()
	require.Len(t, closed, 1)
	assertPoint(t, "1.2020", closed[0].ExitPrice)
	assertPoint(t, "0.02", closed[0].NetProfit)
	assert.Empty(t, b.OpenPositions())
	assertLedger(t, b)
}

func TestVirtualBroker_PartialCloseInstruction(t *testing.T) {
	b := newTestBroker(t)

	id := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2005")))

	b.PlaceOrder(common.OrderRequest{
		Instrument: eurUsd,
		Direction:  common.Short,
		Size:       p("4"),
		Type:       common.Close{Related: id},
		TimeStamp:  at(1),
	})
	require.NoError(t, b.ProcessBar(bar(eurUsd, 2, "1.2020", "1.2030", "1.2010", "1.2025")))

	requireState(t, b, id, StateOpen)
	open := b.OpenPositions()
	require.Len(t, open, 1)
	assertPoint(t, "6", open[0].Size)

	closed := b.ClosedPositions()
	require.Len(t, closed, 1)
	assert.True(t, closed[0].Partial)
	assertPoint(t, "4", closed[0].Size)
	assertLedger(t, b)
}

func TestVirtualBroker_CloseInstructionUnknownPosition(t *testing.T) {
	b := newTestBroker(t)

	closeId := b.PlaceOrder(common.OrderRequest{
		Instrument: eurUsd,
		Direction:  common.Short,
		Type:       common.Close{Related: 99},
		TimeStamp:  t0,
	})

	err := b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2005"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownOrder))
	assert.Contains(t, err.Error(), "order 1")

	requireState(t, b, closeId, StateCancelled)
	cancelled := b.CancelledOrders()
	require.Len(t, cancelled, 1)
	assert.Contains(t, cancelled[0].Reason, ErrUnknownOrder.Error())
}

func TestVirtualBroker_CloseInstructionOtherInstrument(t *testing.T) {
	b := newTestBroker(t)

	id := b.PlaceOrder(market(common.Long, "10", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2000")))

	closeId := b.PlaceOrder(common.OrderRequest{
		Instrument: "USD_JPY",
		Direction:  common.Short,
		Type:       common.Close{Related: id},
		TimeStamp:  at(1),
	})

	err := b.ProcessBar(bar("USD_JPY", 2, "150.00", "150.10", "149.90", "150.05"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInstrumentMismatch))

	requireState(t, b, closeId, StateCancelled)
	requireState(t, b, id, StateOpen)
	assert.Empty(t, b.ClosedPositions())

	open := b.OpenPositions()
	require.Len(t, open, 1)
	assertPoint(t, "1.2000", open[0].LastPrice)
	assertPoint(t, "1000", b.Account().Balance)
	assertLedger(t, b)
}

func TestVirtualBroker_ReduceInstruction(t *testing.T) {
	b := newTestBroker(t)

	first := b.PlaceOrder(market(common.Long, "5", "1.2000"))
	second := b.PlaceOrder(market(common.Long, "3", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2005")))

	reduceId := b.PlaceOrder(common.OrderRequest{
		Instrument: eurUsd,
		Direction:  common.Short,
		Size:       p("6"),
		Type:       common.Reduce{},
		TimeStamp:  at(1),
	})
	require.NoError(t, b.ProcessBar(bar(eurUsd, 2, "1.2010", "1.2020", "1.2000", "1.2015")))

	requireState(t, b, reduceId, StateClosed)
	requireState(t, b, first, StateClosed)
	requireState(t, b, second, StateOpen)
	assertPoint(t, "2", b.OpenPositions()[0].Size)
	assertLedger(t, b)
}

func TestVirtualBroker_ReduceInstructionOverflow(t *testing.T) {
	b := newTestBroker(t)

	id := b.PlaceOrder(market(common.Long, "5", "1.2000"))
	require.NoError(t, b.ProcessBar(bar(eurUsd, 1, "1.2000", "1.2010", "1.1990", "1.2005")))

	reduceId := b.PlaceOrder(common.OrderRequest{
		Instrument: eurUsd,
		Direction:  common.Short,
		Size:       p("6"),
		Type:       common.Reduce{},
		TimeStamp:  at(1),
	})
	err := b.ProcessBar(bar(eurUsd, 2, "1.2010", "1.2020", "1.2000", "1.2015"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientOpenSize))

	requireState(t, b, reduceId, StateCancelled)
	requireState(t, b, id, StateOpen)
	assertPoint(t, "5", b.OpenPositions()[0].Size)
	assert.Empty(t, b.ClosedPositions())
	assertLedger(t, b)
}
