package metrics

import (
	"time"

	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Report struct {
	StartDate            time.Time     `json:"start_date"`
	EndDate              time.Time     `json:"end_date"`
	InitialEquity        fixed.Point   `json:"initial_equity"`
	FinalEquity          fixed.Point   `json:"final_equity"`
	TotalProfit          fixed.Point   `json:"total_profit"`
	AnnualizedReturn     fixed.Point   `json:"annualized_return"`
	MaxDrawdown          fixed.Point   `json:"max_drawdown"`
	TotalTrades          int           `json:"total_trades"`
	PartialCloses        int           `json:"partial_closes"`
	WinningTrades        int           `json:"winning_trades"`
	LosingTrades         int           `json:"losing_trades"`
	WinRate              fixed.Point   `json:"win_rate"`
	Expectancy           fixed.Point   `json:"expectancy"`
	ProfitFactor         fixed.Point   `json:"profit_factor"`
	AverageWin           fixed.Point   `json:"average_win"`
	AverageLoss          fixed.Point   `json:"average_loss"`
	RiskRewardRatio      fixed.Point   `json:"risk_reward_ratio"`
	TotalCommission      fixed.Point   `json:"total_commission"`
	AverageTradeDuration time.Duration `json:"average_trade_duration"`
	RecoveryFactor       fixed.Point   `json:"recovery_factor"`
	SharpeRatio          fixed.Point   `json:"sharpe_ratio"`
	SortinoRatio         fixed.Point   `json:"sortino_ratio"`
	AnnualizedVolatility fixed.Point   `json:"annualized_volatility"`
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("trade report",
		zap.String("initial_equity", r.InitialEquity.String()),
		zap.String("final_equity", r.FinalEquity.String()),
		zap.String("total_profit", r.TotalProfit.String()+"%"),
		zap.String("annualized_return", r.AnnualizedReturn.String()+"%"),
		zap.String("max_drawdown", r.MaxDrawdown.String()+"%"),
		zap.String("recovery_factor", r.RecoveryFactor.String()))

	logger.Info("trade statistics",
		zap.Int("total_trades", r.TotalTrades),
		zap.Int("partial_closes", r.PartialCloses),
		zap.Int("winning_trades", r.WinningTrades),
		zap.Int("losing_trades", r.LosingTrades),
		zap.String("win_rate", r.WinRate.String()+"%"),
		zap.String("expectancy", r.Expectancy.String()),
		zap.String("profit_factor", r.ProfitFactor.String()),
		zap.String("average_win", r.AverageWin.String()),
		zap.String("average_loss", r.AverageLoss.String()),
		zap.String("risk_reward_ratio", r.RiskRewardRatio.String()),
		zap.String("total_commission", r.TotalCommission.String()),
		zap.Duration("average_trade_duration", r.AverageTradeDuration))

	logger.Info("risk metrics",
		zap.String("sharpe_ratio", r.SharpeRatio.String()),
		zap.String("sortino_ratio", r.SortinoRatio.String()),
		zap.String("annualized_volatility", r.AnnualizedVolatility.String()+"%"))
}
