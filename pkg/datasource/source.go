package datasource

import (
	"errors"
	"sort"

	"github.com/peter-kozarec/vbroker/pkg/common"
)

// ErrEof is returned by a source that has no more bars.
var ErrEof = errors.New("EOF")

type BarDataSource interface {
	GetNext() (common.Bar, error)
}

// SliceSource replays bars held in memory in global time order. Bars with
// the same timestamp keep the order they were given in.
type SliceSource struct {
	bars []common.Bar
	idx  int
}

func NewSliceSource(series ...[]common.Bar) *SliceSource {
	var bars []common.Bar
	for _, s := range series {
		bars = append(bars, s...)
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].TimeStamp.Before(bars[j].TimeStamp)
	})
	return &SliceSource{bars: bars}
}

func (s *SliceSource) GetNext() (common.Bar, error) {
	if s.idx >= len(s.bars) {
		return common.Bar{}, ErrEof
	}
	bar := s.bars[s.idx]
	s.idx++
	return bar, nil
}

func (s *SliceSource) Len() int {
	return len(s.bars)
}

// MergeSource interleaves several time ordered sources into one. On equal
// timestamps the source given first wins.
type MergeSource struct {
	sources []BarDataSource
	heads   []common.Bar
	ready   []bool
	done    []bool
}

func NewMergeSource(sources ...BarDataSource) *MergeSource {
	return &MergeSource{
		sources: sources,
		heads:   make([]common.Bar, len(sources)),
		ready:   make([]bool, len(sources)),
		done:    make([]bool, len(sources)),
	}
}

func (m *MergeSource) GetNext() (common.Bar, error) {
	next := -1

	for i, source := range m.sources {
		if m.done[i] {
			continue
		}
		if !m.ready[i] {
			bar, err := source.GetNext()
			if errors.Is(err, ErrEof) {
				m.done[i] = true
				continue
			}
			if err != nil {
				return common.Bar{}, err
			}
			m.heads[i] = bar
			m.ready[i] = true
		}
		if next == -1 || m.heads[i].TimeStamp.Before(m.heads[next].TimeStamp) {
			next = i
		}
	}

	if next == -1 {
		return common.Bar{}, ErrEof
	}

	m.ready[next] = false
	return m.heads[next], nil
}
