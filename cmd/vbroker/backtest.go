package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/internal/config"
	"github.com/peter-kozarec/vbroker/internal/dbg"
	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/exchange/virtual"
	"github.com/peter-kozarec/vbroker/pkg/journal"
	"github.com/peter-kozarec/vbroker/pkg/middleware"
	"github.com/peter-kozarec/vbroker/pkg/simulation"
	"github.com/peter-kozarec/vbroker/pkg/tools/metrics"
	"github.com/peter-kozarec/vbroker/pkg/tools/position"
	"github.com/peter-kozarec/vbroker/pkg/utility"
)

type backtestOptions struct {
	configPath string
	jsonReport bool
}

// backtestResult is what the json report flag prints.
type backtestResult struct {
	ExecutionId utility.ExecutionID     `json:"execution_id"`
	Bars        int                     `json:"bars"`
	Account     common.Account          `json:"account"`
	Report      metrics.Report          `json:"report"`
	Closed      []common.ClosedPosition `json:"closed_positions"`
	Cancelled   []common.CancelledOrder `json:"cancelled_orders"`
}

func backtestCmd() *cobra.Command {
	opts := &backtestOptions{}

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay bars and scheduled orders through the virtual broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger, err := dbg.NewLogger(cfg.Log.Dev, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			result, err := runBacktest(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if opts.jsonReport {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "vbroker.yaml", "Path to the YAML configuration")
	cmd.Flags().BoolVar(&opts.jsonReport, "json", false, "Print the result as JSON on stdout")
	return cmd
}

func runBacktest(ctx context.Context, cfg *config.Config, logger *zap.Logger) (backtestResult, error) {
	executionId := utility.ResetExecutionID()
	logger.Info(fmt.Sprintf("vbroker %s", version), zap.Stringer("execution_id", executionId))
	defer logger.Info("done")

	router := bus.NewRouter(logger, cfg.Router.Capacity)

	broker, err := virtual.NewBroker(cfg.BrokerOptions(logger, router)...)
	if err != nil {
		return backtestResult{}, err
	}
	broker.MakeDeposit(cfg.Account.Deposit)

	source, closeSource, err := openSource(ctx, cfg.Data, logger)
	if err != nil {
		return backtestResult{}, err
	}
	defer closeSource()

	audit := metrics.NewAudit()
	holdings := position.NewHoldings()

	positionClose := []bus.EventHandler[common.ClosedPosition]{audit.OnPositionClose, holdings.OnPositionClose}
	var orderCancel []bus.EventHandler[common.CancelledOrder]

	if cfg.Journal.Enabled() {
		j := journal.NewJournal(cfg.Journal.DSN, logger)
		if err := j.Open(ctx); err != nil {
			return backtestResult{}, err
		}
		defer j.Close()
		positionClose = append(positionClose, j.OnPositionClose)
		orderCancel = append(orderCancel, j.OnOrderCancel)
	}

	router.OnOrder = broker.OnOrder
	router.OnEquity = audit.OnEquity
	router.OnPositionOpen = holdings.OnPositionOpen
	router.OnPositionUpdate = holdings.OnPositionUpdate
	router.OnPositionClose = bus.MergeHandlers(positionClose...)
	router.OnOrderCancel = bus.MergeHandlers(orderCancel...)

	performance := middleware.NewPerformance(logger)
	performance.Attach(router)
	middleware.NewMonitor(logger, cfg.MonitorFlags()).Attach(router)

	executor := simulation.NewExecutor(logger, router, broker, source, simulation.WithOrders(cfg.OrderRequests()...))
	runErr := executor.Run(ctx)

	router.GetStatistics().Print(logger)
	performance.Print()

	report := audit.GenerateReport()
	report.Print(logger)

	account := broker.Account()
	logger.Info("account",
		zap.String("balance", account.Balance.String()),
		zap.String("nav", account.NAV.String()),
		zap.String("max_drawdown", account.MaxDrawdown.String()),
		zap.Int("total_trades", account.TotalTrades),
		zap.Int("profitable_trades", account.ProfitableTrades),
		zap.Int("open_positions", holdings.Count()))

	if runErr != nil {
		logger.Error("replay stopped", zap.Error(runErr))
		return backtestResult{}, runErr
	}

	return backtestResult{
		ExecutionId: executionId,
		Bars:        executor.BarCount(),
		Account:     account,
		Report:      report,
		Closed:      broker.ClosedPositions(),
		Cancelled:   broker.CancelledOrders(),
	}, nil
}
