package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/bus"
)

type timing struct {
	count int64
	total time.Duration
}

// Performance measures how long the wrapped handlers take per event kind.
// Handlers are executed by one router goroutine, so no locking is done.
type Performance struct {
	logger  *zap.Logger
	timings map[bus.EventId]*timing
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger:  logger,
		timings: make(map[bus.EventId]*timing),
	}
}

func (p *Performance) Attach(r *bus.Router) {
	r.OnBar = timed(p, bus.BarEvent, r.OnBar)
	r.OnEquity = timed(p, bus.EquityEvent, r.OnEquity)
	r.OnBalance = timed(p, bus.BalanceEvent, r.OnBalance)
	r.OnPositionOpen = timed(p, bus.PositionOpenEvent, r.OnPositionOpen)
	r.OnPositionClose = timed(p, bus.PositionCloseEvent, r.OnPositionClose)
	r.OnPositionUpdate = timed(p, bus.PositionUpdateEvent, r.OnPositionUpdate)
	r.OnOrder = timed(p, bus.OrderEvent, r.OnOrder)
	r.OnOrderAcceptance = timed(p, bus.OrderAcceptanceEvent, r.OnOrderAcceptance)
	r.OnOrderCancel = timed(p, bus.OrderCancelEvent, r.OnOrderCancel)
}

func (p *Performance) Count(id bus.EventId) int64 {
	if t, ok := p.timings[id]; ok {
		return t.count
	}
	return 0
}

func (p *Performance) Total(id bus.EventId) time.Duration {
	if t, ok := p.timings[id]; ok {
		return t.total
	}
	return 0
}

func (p *Performance) Fields() []zap.Field {
	var fields []zap.Field
	for id := bus.BarEvent; id <= bus.OrderCancelEvent; id++ {
		t, ok := p.timings[id]
		if !ok || t.count == 0 {
			continue
		}
		fields = append(fields,
			zap.Int64(id.String()+"_count", t.count),
			zap.Duration(id.String()+"_avg_duration", t.total/time.Duration(t.count)),
			zap.Duration(id.String()+"_total_duration", t.total))
	}
	return fields
}

func (p *Performance) Print() {
	p.logger.Info("handler performance", p.Fields()...)
}

func timed[T any, H ~func(context.Context, T)](p *Performance, id bus.EventId, h H) H {
	return H(func(ctx context.Context, event T) {
		start := time.Now()
		if h != nil {
			h(ctx, event)
		}
		t, ok := p.timings[id]
		if !ok {
			t = &timing{}
			p.timings[id] = t
		}
		t.count++
		t.total += time.Since(start)
	})
}
