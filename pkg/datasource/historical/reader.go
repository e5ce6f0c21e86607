package historical

import (
	"errors"
	"fmt"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/utility"
)

const (
	invalidIndex           = -1
	barReaderComponentName = "datasource.historical.reader"
)

var ErrNoBarsInRange = errors.New("no bars in range")

// BarReader streams the bars of one instrument whose timestamps fall in
// [from, to].
type BarReader struct {
	source *Source[BinaryBar]

	symbol string
	period time.Duration
	from   int64
	to     int64
	idx    int64
}

func NewBarReader(source *Source[BinaryBar], symbol string, period time.Duration, from, to time.Time) *BarReader {
	return &BarReader{
		source: source,
		symbol: symbol,
		period: period,
		from:   from.UnixNano(),
		to:     to.UnixNano(),
		idx:    invalidIndex,
	}
}

func (r *BarReader) GetNext() (common.Bar, error) {
	var bar common.Bar
	var binBar BinaryBar

	if r.idx == invalidIndex {
		if err := r.lookupStartIndex(); err != nil {
			return bar, err
		}
	}

	if err := r.source.Read(r.idx, &binBar); err != nil {
		if errors.Is(err, datasource.ErrEof) {
			return bar, err
		}
		return bar, fmt.Errorf("error reading bar at index %d: %w", r.idx, err)
	}
	r.idx++

	if binBar.TimeStamp < r.from {
		return bar, fmt.Errorf("bar at index %d precedes range start, file is not sorted", r.idx-1)
	}
	if binBar.TimeStamp > r.to {
		return bar, datasource.ErrEof
	}

	binBar.ToModelBar(&bar)

	bar.Source = barReaderComponentName
	bar.Symbol = r.symbol
	bar.Period = r.period
	bar.ExecutionId = utility.GetExecutionID()

	return bar, nil
}

func (r *BarReader) lookupStartIndex() error {
	entryCount, err := r.source.EntryCount()
	if err != nil {
		return fmt.Errorf("error getting entry count: %w", err)
	}

	if entryCount == 0 {
		return datasource.ErrEof
	}

	var entry BinaryBar

	low := int64(0)
	high := entryCount - 1

	for low <= high {
		mid := (low + high) / 2

		if err := r.source.Read(mid, &entry); err != nil {
			return fmt.Errorf("error reading bar at index %d: %w", mid, err)
		}

		if entry.TimeStamp < r.from {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	if low >= entryCount {
		return fmt.Errorf("%w: nothing at or after %s", ErrNoBarsInRange, time.Unix(0, r.from).UTC())
	}

	r.idx = low
	return nil
}
