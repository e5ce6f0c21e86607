package fixed

import (
	"testing"
)

func createPoints(values ...float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = FromFloat64(v)
	}
	return points
}

func assertPointEqual(t *testing.T, expected, actual Point, tolerance float64, msg string) {
	t.Helper()
	diff := expected.Sub(actual).Abs()
	tol := FromFloat64(tolerance)
	if diff.Gt(tol) {
		t.Errorf("%s: expected %v, got %v (diff: %v)", msg, expected, actual, diff)
	}
}

func TestFixedMath_Mean(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		expected Point
	}{
		{"empty slice", []Point{}, Zero},
		{"single point", createPoints(5.0), FromFloat64(5.0)},
		{"multiple points", createPoints(1.0, 2.0, 3.0, 4.0, 5.0), FromFloat64(3.0)},
		{"mixed signs", createPoints(-2.0, -1.0, 0.0, 1.0, 2.0), Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertPointEqual(t, tt.expected, Mean(tt.points), 1e-12, "Mean")
		})
	}
}

func TestFixedMath_StdDev(t *testing.T) {
	points := createPoints(2, 4, 4, 4, 5, 5, 7, 9)
	assertPointEqual(t, FromInt(2, 0), StdDev(points, Mean(points)), 1e-12, "StdDev")
	assertPointEqual(t, Zero, StdDev(createPoints(1), One), 0, "StdDev single")
}

func TestFixedMath_DownsideDev(t *testing.T) {
	points := createPoints(-0.02, 0.01, -0.04, 0.03)
	// squared deviations below zero: 0.0004, 0.0016 -> mean 0.001
	assertPointEqual(t, FromFloat64(0.001).Sqrt(), DownsideDev(points, Zero), 1e-12, "DownsideDev")
	assertPointEqual(t, Zero, DownsideDev(createPoints(0.01, 0.02), Zero), 0, "DownsideDev no losses")
}

func TestFixedMath_Ratios(t *testing.T) {
	assertPointEqual(t, Zero, SharpeRatio(nil, Zero), 0, "SharpeRatio empty")
	assertPointEqual(t, Zero, SharpeRatio(createPoints(0.01, 0.01), Zero), 0, "SharpeRatio flat")
	assertPointEqual(t, Zero, SortinoRatio(createPoints(0.01, 0.02), Zero), 0, "SortinoRatio no downside")

	points := createPoints(0.01, -0.01, 0.03, -0.01)
	sharpe := SharpeRatio(points, Zero)
	if !sharpe.Gt(Zero) {
		t.Errorf("SharpeRatio = %s; want positive", sharpe)
	}
	sortino := SortinoRatio(points, Zero)
	if !sortino.Gt(Zero) {
		t.Errorf("SortinoRatio = %s; want positive", sortino)
	}
}
