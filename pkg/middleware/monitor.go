package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/bus"
	"github.com/peter-kozarec/vbroker/pkg/common"
)

const monitorComponentName = "middleware.monitor"

type MonitorFlags uint16

const (
	MonitorBars MonitorFlags = 1 << iota
	MonitorEquity
	MonitorBalance
	MonitorPositionsOpened
	MonitorPositionsClosed
	MonitorPositionsUpdated
	MonitorOrders
	MonitorOrdersAccepted
	MonitorOrdersCancelled

	MonitorNone MonitorFlags = 0
	MonitorAll               = MonitorBars | MonitorEquity | MonitorBalance | MonitorPositionsOpened |
		MonitorPositionsClosed | MonitorPositionsUpdated | MonitorOrders | MonitorOrdersAccepted | MonitorOrdersCancelled
)

// ParseMonitorFlags maps event names such as "bar" or "order_cancel" to
// flags. "all" selects everything. Unknown names are returned separately.
func ParseMonitorFlags(names []string) (MonitorFlags, []string) {
	var flags MonitorFlags
	var unknown []string

	for _, name := range names {
		switch name {
		case "all":
			flags |= MonitorAll
		case bus.BarEvent.String():
			flags |= MonitorBars
		case bus.EquityEvent.String():
			flags |= MonitorEquity
		case bus.BalanceEvent.String():
			flags |= MonitorBalance
		case bus.PositionOpenEvent.String():
			flags |= MonitorPositionsOpened
		case bus.PositionCloseEvent.String():
			flags |= MonitorPositionsClosed
		case bus.PositionUpdateEvent.String():
			flags |= MonitorPositionsUpdated
		case bus.OrderEvent.String():
			flags |= MonitorOrders
		case bus.OrderAcceptanceEvent.String():
			flags |= MonitorOrdersAccepted
		case bus.OrderCancelEvent.String():
			flags |= MonitorOrdersCancelled
		default:
			unknown = append(unknown, name)
		}
	}
	return flags, unknown
}

type Monitor struct {
	flags  MonitorFlags
	logger *zap.Logger
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		flags:  flags,
		logger: logger.Named(monitorComponentName),
	}
}

// Attach wraps every handler currently set on the router.
func (m *Monitor) Attach(r *bus.Router) {
	r.OnBar = m.WithBar(r.OnBar)
	r.OnEquity = m.WithEquity(r.OnEquity)
	r.OnBalance = m.WithBalance(r.OnBalance)
	r.OnPositionOpen = m.WithPositionOpen(r.OnPositionOpen)
	r.OnPositionClose = m.WithPositionClose(r.OnPositionClose)
	r.OnPositionUpdate = m.WithPositionUpdate(r.OnPositionUpdate)
	r.OnOrder = m.WithOrder(r.OnOrder)
	r.OnOrderAcceptance = m.WithOrderAcceptance(r.OnOrderAcceptance)
	r.OnOrderCancel = m.WithOrderCancel(r.OnOrderCancel)
}

func (m *Monitor) WithBar(h bus.BarEventHandler) bus.BarEventHandler {
	return monitored(m, MonitorBars, bus.BarEvent, h, common.Bar.Fields)
}

func (m *Monitor) WithEquity(h bus.EquityEventHandler) bus.EquityEventHandler {
	return monitored(m, MonitorEquity, bus.EquityEvent, h, common.Equity.Fields)
}

func (m *Monitor) WithBalance(h bus.BalanceEventHandler) bus.BalanceEventHandler {
	return monitored(m, MonitorBalance, bus.BalanceEvent, h, common.Balance.Fields)
}

func (m *Monitor) WithPositionOpen(h bus.PositionOpenEventHandler) bus.PositionOpenEventHandler {
	return monitored(m, MonitorPositionsOpened, bus.PositionOpenEvent, h, common.Position.Fields)
}

func (m *Monitor) WithPositionClose(h bus.PositionCloseEventHandler) bus.PositionCloseEventHandler {
	return monitored(m, MonitorPositionsClosed, bus.PositionCloseEvent, h, common.ClosedPosition.Fields)
}

func (m *Monitor) WithPositionUpdate(h bus.PositionUpdateEventHandler) bus.PositionUpdateEventHandler {
	return monitored(m, MonitorPositionsUpdated, bus.PositionUpdateEvent, h, common.Position.Fields)
}

func (m *Monitor) WithOrder(h bus.OrderEventHandler) bus.OrderEventHandler {
	return monitored(m, MonitorOrders, bus.OrderEvent, h, common.OrderRequest.Fields)
}

func (m *Monitor) WithOrderAcceptance(h bus.OrderAcceptanceEventHandler) bus.OrderAcceptanceEventHandler {
	return monitored(m, MonitorOrdersAccepted, bus.OrderAcceptanceEvent, h, common.PendingOrder.Fields)
}

func (m *Monitor) WithOrderCancel(h bus.OrderCancelEventHandler) bus.OrderCancelEventHandler {
	return monitored(m, MonitorOrdersCancelled, bus.OrderCancelEvent, h, common.CancelledOrder.Fields)
}

func monitored[T any, H ~func(context.Context, T)](m *Monitor, flag MonitorFlags, id bus.EventId, h H, fields func(T) []zap.Field) H {
	return H(func(ctx context.Context, event T) {
		if m.flags&flag != 0 {
			m.logger.Info(id.String(), fields(event)...)
		}
		if h != nil {
			h(ctx, event)
		}
	})
}
