package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
	"github.com/peter-kozarec/vbroker/pkg/datasource"
	"github.com/peter-kozarec/vbroker/pkg/exchange/virtual"
)

const executorComponentName = "simulation.executor"

type ExecutorOption func(*Executor)

// WithOrders schedules order requests. Each one is placed before the first
// bar whose timestamp is not earlier than the request timestamp.
func WithOrders(orders ...common.OrderRequest) ExecutorOption {
	return func(e *Executor) {
		e.orders = append(e.orders, orders...)
	}
}

// Executor replays bars from a data source into the broker and the router.
type Executor struct {
	logger *zap.Logger
	router *bus.Router
	broker *virtual.Broker

	dispatch func() error
	orders   []common.OrderRequest
	next     int

	bars     int
	lastTime time.Time
	draining bool
	finished bool
	closed   []common.ClosedPosition
}

func NewExecutor(logger *zap.Logger, router *bus.Router, broker *virtual.Broker, source datasource.BarDataSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger: logger.Named(executorComponentName),
		router: router,
		broker: broker,
	}
	for _, opt := range opts {
		opt(e)
	}
	sort.SliceStable(e.orders, func(i, j int) bool {
		return e.orders[i].TimeStamp.Before(e.orders[j].TimeStamp)
	})
	e.dispatch = datasource.CreateBarDispatcher(router, source, e.process)
	return e
}

// Feed is the router loop callback. Once the source is exhausted it closes the
// remaining positions in batches that fit the router queue, and returns
// datasource.ErrEof after the last batch.
func (e *Executor) Feed() error {
	if e.draining {
		return e.closeBatch()
	}

	err := e.dispatch()
	if err == nil {
		return nil
	}
	if errors.Is(err, datasource.ErrEof) {
		e.draining = true
		return e.closeBatch()
	}
	return err
}

// Run drives the router loop until the source is exhausted, ctx is done or a
// contract violation stops the replay.
func (e *Executor) Run(ctx context.Context) error {
	err := <-e.router.ExecLoop(ctx, e.Feed)
	if errors.Is(err, datasource.ErrEof) {
		return nil
	}
	return err
}

func (e *Executor) BarCount() int {
	return e.bars
}

// Unplaced returns the scheduled orders that never became due.
func (e *Executor) Unplaced() []common.OrderRequest {
	return e.orders[e.next:]
}

// ForcedCloses returns the positions closed when the replay ran out of bars.
func (e *Executor) ForcedCloses() []common.ClosedPosition {
	return e.closed
}

func (e *Executor) process(bar common.Bar) error {
	for e.next < len(e.orders) && !e.orders[e.next].TimeStamp.After(bar.TimeStamp) {
		req := e.orders[e.next]
		e.next++

		id := e.broker.PlaceOrder(req)
		e.logger.Debug("scheduled order placed", append(req.Fields(), zap.Int64("id", int64(id)))...)
	}

	if err := e.broker.ProcessBar(bar); err != nil {
		return fmt.Errorf("bar %s %s: %w", bar.Symbol, bar.TimeStamp.Format(time.RFC3339), err)
	}

	e.bars++
	e.lastTime = bar.TimeStamp
	return nil
}

// closeBatch is called with an empty router queue. The router dispatches the
// close events of a batch before the next call.
func (e *Executor) closeBatch() error {
	if e.finished {
		return datasource.ErrEof
	}

	if len(e.broker.OpenPositions()) > 0 {
		e.closed = append(e.closed, e.broker.ClosePositions(e.lastTime, e.batchSize())...)
		if len(e.broker.OpenPositions()) > 0 {
			return nil
		}
	}

	e.finish()
	return datasource.ErrEof
}

// batchSize leaves room for the balance and equity events posted with a
// batch of closes.
func (e *Executor) batchSize() int {
	return max(e.router.Capacity()-2, 1)
}

func (e *Executor) finish() {
	e.finished = true

	if n := len(e.orders) - e.next; n > 0 {
		e.logger.Warn("scheduled orders were never placed", zap.Int("count", n))
	}
	e.logger.Info("replay finished",
		zap.Int("bars", e.bars),
		zap.Int("forced_closes", len(e.closed)),
		zap.Time("last_bar", e.lastTime))
}
