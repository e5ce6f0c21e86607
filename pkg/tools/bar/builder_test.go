package bar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

var t0 = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func p(s string) fixed.Point { return fixed.MustFromString(s) }

func minute(symbol string, m int, open, high, low, last string) common.Bar {
	return common.Bar{
		Symbol:    symbol,
		TimeStamp: t0.Add(time.Duration(m) * time.Minute),
		Period:    time.Minute,
		Open:      p(open),
		High:      p(high),
		Low:       p(low),
		Close:     p(last),
		Volume:    fixed.One,
	}
}

func drain(t *testing.T, b *Builder) []common.Bar {
	t.Helper()
	var out []common.Bar
	for {
		bar, err := b.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			return out
		}
		require.NoError(t, err)
		out = append(out, bar)
	}
}

func TestBuilder_Aggregates(t *testing.T) {
	source := datasource.NewSliceSource([]common.Bar{
		minute("EUR_USD", 0, "1.10", "1.12", "1.09", "1.11"),
		minute("EUR_USD", 1, "1.11", "1.15", "1.10", "1.14"),
		minute("EUR_USD", 2, "1.14", "1.14", "1.05", "1.06"),
		minute("EUR_USD", 5, "1.06", "1.07", "1.06", "1.07"),
		minute("EUR_USD", 6, "1.07", "1.08", "1.07", "1.08"),
	})

	bars := drain(t, NewBuilder(source, 5*time.Minute))
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, "1.10", first.Open.String())
	assert.Equal(t, "1.15", first.High.String())
	assert.Equal(t, "1.05", first.Low.String())
	assert.Equal(t, "1.06", first.Close.String())
	assert.True(t, first.Volume.Eq(fixed.Three))
	assert.Equal(t, t0.Add(2*time.Minute), first.TimeStamp)
	assert.Equal(t, 5*time.Minute, first.Period)

	assert.Equal(t, "1.08", bars[1].Close.String())
	assert.Equal(t, t0.Add(6*time.Minute), bars[1].TimeStamp)
}

func TestBuilder_KeepsGlobalOrderAcrossSymbols(t *testing.T) {
	source := datasource.NewSliceSource(
		[]common.Bar{
			minute("EUR_USD", 0, "1", "1", "1", "1"),
			minute("EUR_USD", 5, "1", "1", "1", "1"),
			minute("EUR_USD", 10, "1", "1", "1", "1"),
		},
		[]common.Bar{
			minute("GBP_USD", 1, "2", "2", "2", "2"),
			minute("GBP_USD", 12, "2", "2", "2", "2"),
		},
	)

	bars := drain(t, NewBuilder(source, 5*time.Minute))
	require.Len(t, bars, 5)

	for i := 1; i < len(bars); i++ {
		assert.False(t, bars[i].TimeStamp.Before(bars[i-1].TimeStamp), "bar %d out of order", i)
	}
	assert.Equal(t, "EUR_USD", bars[0].Symbol)
	assert.Equal(t, "GBP_USD", bars[1].Symbol)
	assert.Equal(t, t0.Add(time.Minute), bars[1].TimeStamp)
}

func TestBuilder_Empty(t *testing.T) {
	_, err := NewBuilder(datasource.NewSliceSource(), time.Hour).GetNext()
	assert.True(t, errors.Is(err, datasource.ErrEof))
}
