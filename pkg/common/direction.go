package common

import (
	"fmt"

	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

// Direction of an order or position. Sizes are always stored as a
// non-negative magnitude next to it.
type Direction int8

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

func (d Direction) Opposite() Direction {
	return -d
}

func (d Direction) IsValid() bool {
	return d == Long || d == Short
}

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() fixed.Point {
	if d == Short {
		return fixed.NegOne
	}
	return fixed.One
}

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
