package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrCapacityReached = errors.New("event capacity reached")

type event struct {
	id   EventId
	data any
}

type Router struct {
	logger *zap.Logger
	events chan event

	OnBar             BarEventHandler
	OnEquity          EquityEventHandler
	OnBalance         BalanceEventHandler
	OnPositionOpen    PositionOpenEventHandler
	OnPositionClose   PositionCloseEventHandler
	OnPositionUpdate  PositionUpdateEventHandler
	OnOrder           OrderEventHandler
	OnOrderAcceptance OrderAcceptanceEventHandler
	OnOrderCancel     OrderCancelEventHandler

	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger: logger,
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data any) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return ErrCapacityReached
	}
}

// Capacity is the number of events that can be queued before Post fails.
func (r *Router) Capacity() int {
	return cap(r.events)
}

// Exec dispatches events until ctx is done. The returned channel receives
// the reason the loop stopped.
func (r *Router) Exec(ctx context.Context) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() { r.runTime.Add(int64(time.Since(start))) }()

		for {
			select {
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			case ev := <-r.events:
				r.handle(ctx, ev)
			}
		}
	}()

	return errChan
}

// ExecLoop dispatches queued events and calls doOnceCb whenever the queue is
// empty. The loop stops on the first callback error or when ctx is done.
func (r *Router) ExecLoop(ctx context.Context, doOnceCb func() error) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		start := time.Now()
		defer func() { r.runTime.Add(int64(time.Since(start))) }()

		for {
			select {
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			case ev := <-r.events:
				r.handle(ctx, ev)
			default:
				if err := doOnceCb(); err != nil {
					r.drain(ctx)
					errChan <- err
					return
				}
			}
		}
	}()

	return errChan
}

// Drain dispatches whatever is still queued without blocking.
func (r *Router) Drain(ctx context.Context) {
	r.drain(ctx)
}

func (r *Router) GetStatistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	postCount := r.postCount.Load()

	var throughput float64
	if runTime > 0 {
		throughput = float64(postCount) / runTime.Seconds()
	}

	return Statistics{
		RunTime:       runTime,
		PostCount:     postCount,
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
		Throughput:    throughput,
	}
}

func (r *Router) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			r.handle(ctx, ev)
		default:
			return
		}
	}
}

func (r *Router) handle(ctx context.Context, ev event) {
	r.dispatchCount.Add(1)
	if err := r.dispatch(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		r.logger.Warn("dispatch failed",
			zap.Error(err),
			zap.Stringer("event", ev.id))
	}
}

func (r *Router) dispatch(ctx context.Context, ev event) error {
	switch ev.id {
	case BarEvent:
		return call(ctx, ev, r.OnBar)
	case EquityEvent:
		return call(ctx, ev, r.OnEquity)
	case BalanceEvent:
		return call(ctx, ev, r.OnBalance)
	case PositionOpenEvent:
		return call(ctx, ev, r.OnPositionOpen)
	case PositionCloseEvent:
		return call(ctx, ev, r.OnPositionClose)
	case PositionUpdateEvent:
		return call(ctx, ev, r.OnPositionUpdate)
	case OrderEvent:
		return call(ctx, ev, r.OnOrder)
	case OrderAcceptanceEvent:
		return call(ctx, ev, r.OnOrderAcceptance)
	case OrderCancelEvent:
		return call(ctx, ev, r.OnOrderCancel)
	default:
		return fmt.Errorf("unsupported event id: %d", ev.id)
	}
}

func call[T any, H ~func(context.Context, T)](ctx context.Context, ev event, handler H) error {
	data, ok := ev.data.(T)
	if !ok {
		return fmt.Errorf("invalid type assertion for %s event", ev.id)
	}
	if handler != nil {
		handler(ctx, data)
	}
	return nil
}
