package historical

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

// BinaryBar is the on-disk record of one bar. Files are written in native
// byte order and sorted by TimeStamp (unix nanoseconds).
type BinaryBar struct {
	TimeStamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

func (b BinaryBar) ToModelBar(bar *common.Bar) {
	bar.TimeStamp = time.Unix(0, b.TimeStamp).UTC()
	bar.Open = fixed.FromFloat64(b.Open)
	bar.High = fixed.FromFloat64(b.High)
	bar.Low = fixed.FromFloat64(b.Low)
	bar.Close = fixed.FromFloat64(b.Close)
	bar.Volume = fixed.FromFloat64(b.Volume)
}

func FromModelBar(bar common.Bar) BinaryBar {
	f := func(p fixed.Point) float64 {
		v, _ := p.Float64()
		return v
	}
	return BinaryBar{
		TimeStamp: bar.TimeStamp.UnixNano(),
		Open:      f(bar.Open),
		High:      f(bar.High),
		Low:       f(bar.Low),
		Close:     f(bar.Close),
		Volume:    f(bar.Volume),
	}
}

// WriteBars creates path and stores bars in the layout Source reads.
func WriteBars(path string, bars []BinaryBar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create bar file %q: %w", path, err)
	}
	if err := binary.Write(f, binary.NativeEndian, bars); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to write bar file %q: %w", path, err)
	}
	return f.Close()
}
