package metrics

import (
	"context"
	"math"
	"time"

	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

const (
	equitySnapshotInterval = time.Minute
)

// Audit collects equity snapshots and realized trades from router events.
type Audit struct {
	equities []common.Equity
	latest   common.Equity
	closed   []common.ClosedPosition
}

func NewAudit() *Audit {
	return &Audit{}
}

func (a *Audit) OnEquity(_ context.Context, equity common.Equity) {
	a.latest = equity
	if len(a.equities) == 0 || equity.TimeStamp.Sub(a.equities[len(a.equities)-1].TimeStamp) >= equitySnapshotInterval {
		a.equities = append(a.equities, equity)
	}
}

func (a *Audit) OnPositionClose(_ context.Context, position common.ClosedPosition) {
	a.closed = append(a.closed, position)
}

func (a *Audit) GenerateReport() Report {
	report := Report{}
	if len(a.equities) == 0 {
		return report
	}
	if last := a.equities[len(a.equities)-1]; a.latest.TimeStamp.After(last.TimeStamp) {
		// the final equity may fall inside the last snapshot interval
		a.equities = append(a.equities, a.latest)
	}

	auditedDays := a.dayCount()

	report.InitialEquity = a.equities[0].Value
	report.StartDate = a.equities[0].TimeStamp
	report.FinalEquity = a.equities[len(a.equities)-1].Value
	report.EndDate = a.equities[len(a.equities)-1].TimeStamp

	if report.InitialEquity.IsPos() {
		report.TotalProfit = report.FinalEquity.Div(report.InitialEquity).Sub(fixed.One).MulInt64(100).Rescale(2)
	}
	report.AnnualizedReturn = annualize(report.InitialEquity, report.FinalEquity, auditedDays)

	maxEquity := report.InitialEquity
	for _, eq := range a.equities {
		if eq.Value.Gt(maxEquity) {
			maxEquity = eq.Value
		}
		if !maxEquity.IsPos() {
			continue
		}
		drawdown := maxEquity.Sub(eq.Value).Div(maxEquity)
		if drawdown.Gt(report.MaxDrawdown) {
			report.MaxDrawdown = drawdown
		}
	}

	var (
		totalDuration time.Duration
		totalProfit   fixed.Point
		totalLoss     fixed.Point
	)
	for _, position := range a.closed {
		report.TotalTrades++
		if position.Partial {
			report.PartialCloses++
		}

		if !position.EntryTime.IsZero() && position.ExitTime.After(position.EntryTime) {
			totalDuration += position.ExitTime.Sub(position.EntryTime)
		}

		report.TotalCommission = report.TotalCommission.Add(position.Commission)

		if position.NetProfit.IsPos() {
			totalProfit = totalProfit.Add(position.NetProfit)
			report.WinningTrades++
		} else {
			totalLoss = totalLoss.Add(position.NetProfit.Neg())
			report.LosingTrades++
		}
	}

	if report.WinningTrades > 0 {
		report.AverageWin = totalProfit.DivInt64(int64(report.WinningTrades))
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt64(int64(report.LosingTrades))
	}
	if totalLoss.IsPos() {
		report.ProfitFactor = totalProfit.Div(totalLoss)
	}
	if report.AverageLoss.IsPos() {
		report.RiskRewardRatio = report.AverageWin.Div(report.AverageLoss)
	}
	if report.TotalTrades > 0 {
		report.Expectancy = totalProfit.Sub(totalLoss).DivInt64(int64(report.TotalTrades))
		report.AverageTradeDuration = totalDuration / time.Duration(report.TotalTrades)
		report.WinRate = fixed.FromInt64(int64(report.WinningTrades), 0).DivInt64(int64(report.TotalTrades)).MulInt64(100).Rescale(2)
	}
	if report.MaxDrawdown.IsPos() {
		report.RecoveryFactor = report.TotalProfit.Div(report.MaxDrawdown.MulInt64(100)).Rescale(5)
	}
	report.MaxDrawdown = report.MaxDrawdown.MulInt64(100).Rescale(2)

	dailyReturns := a.dailyReturns()
	meanReturn := fixed.Mean(dailyReturns)
	vol := fixed.StdDev(dailyReturns, meanReturn)

	if !meanReturn.IsZero() && !vol.IsZero() {
		report.AnnualizedVolatility = vol.Mul(fixed.Sqrt252).MulInt64(100).Rescale(2)
		report.SharpeRatio = fixed.SharpeRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
		report.SortinoRatio = fixed.SortinoRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
	}

	return report
}

// annualize compounds the total return to a yearly rate. Rates that do not
// fit a float64 are reported as zero.
func annualize(initial, final fixed.Point, days int) fixed.Point {
	if days <= 0 || !initial.IsPos() || !final.IsPos() {
		return fixed.Zero
	}
	ratio, _ := final.Div(initial).Float64()
	rate := (math.Pow(ratio, 365.0/float64(days)) - 1) * 100
	if math.IsInf(rate, 0) || math.IsNaN(rate) {
		return fixed.Zero
	}
	return fixed.FromFloat64(rate).Rescale(2)
}

func (a *Audit) dayCount() int {
	if len(a.equities) < 2 {
		return 1
	}
	start := a.equities[0].TimeStamp
	end := a.equities[len(a.equities)-1].TimeStamp
	return int(end.Sub(start).Hours()/24) + 1
}

func (a *Audit) dailyReturns() []fixed.Point {
	var dailyReturns []fixed.Point
	if len(a.equities) < 2 {
		return dailyReturns
	}

	var (
		prevDate   = a.equities[0].TimeStamp.Truncate(24 * time.Hour)
		prevEquity = a.equities[0].Value
	)

	for _, eq := range a.equities[1:] {
		currDate := eq.TimeStamp.Truncate(24 * time.Hour)

		if currDate.After(prevDate) && prevEquity.IsPos() {
			ret := eq.Value.Div(prevEquity).Sub(fixed.One)
			dailyReturns = append(dailyReturns, ret)

			prevDate = currDate
			prevEquity = eq.Value
		}
	}

	return dailyReturns
}
