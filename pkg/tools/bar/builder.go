package bar

import (
	"errors"
	"sort"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/utility"
)

const builderComponentName = "tools.bar.builder"

// Builder resamples a time ordered bar source into a coarser period. Input
// bars are grouped by TimeStamp.Truncate(period) per symbol. A built bar
// carries the timestamp of its last input bar and is emitted as soon as any
// input bar at or past the end of its bucket arrives, so the output stays
// globally time ordered.
type Builder struct {
	source datasource.BarDataSource
	period time.Duration

	inConstruction []building
	ready          []common.Bar
	eof            bool
}

type building struct {
	bucket time.Time
	bar    common.Bar
}

func NewBuilder(source datasource.BarDataSource, period time.Duration) *Builder {
	return &Builder{
		source: source,
		period: period,
	}
}

func (b *Builder) GetNext() (common.Bar, error) {
	for len(b.ready) == 0 {
		if b.eof {
			return common.Bar{}, datasource.ErrEof
		}

		in, err := b.source.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			b.eof = true
			b.flush(time.Time{}, true)
			continue
		}
		if err != nil {
			return common.Bar{}, err
		}

		b.flush(in.TimeStamp, false)
		b.construct(in)
	}

	out := b.ready[0]
	b.ready = b.ready[1:]
	return out, nil
}

func (b *Builder) flush(now time.Time, all bool) {
	var done []common.Bar
	kept := b.inConstruction[:0]

	for _, c := range b.inConstruction {
		if all || !now.Before(c.bucket.Add(b.period)) {
			done = append(done, c.bar)
		} else {
			kept = append(kept, c)
		}
	}
	b.inConstruction = kept

	sort.SliceStable(done, func(i, j int) bool {
		return done[i].TimeStamp.Before(done[j].TimeStamp)
	})
	b.ready = append(b.ready, done...)
}

func (b *Builder) construct(in common.Bar) {
	for i := range b.inConstruction {
		c := &b.inConstruction[i]
		if c.bar.Symbol != in.Symbol {
			continue
		}

		c.bar.High = c.bar.High.Max(in.High)
		c.bar.Low = c.bar.Low.Min(in.Low)
		c.bar.Close = in.Close
		c.bar.Volume = c.bar.Volume.Add(in.Volume)
		c.bar.TimeStamp = in.TimeStamp
		return
	}

	b.inConstruction = append(b.inConstruction, building{
		bucket: in.TimeStamp.Truncate(b.period),
		bar: common.Bar{
			Source:      builderComponentName,
			Symbol:      in.Symbol,
			ExecutionId: utility.GetExecutionID(),
			TimeStamp:   in.TimeStamp,
			Period:      b.period,
			Open:        in.Open,
			High:        in.High,
			Low:         in.Low,
			Close:       in.Close,
			Volume:      in.Volume,
		},
	})
}
