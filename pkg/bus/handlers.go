package bus

import (
	"context"

	"github.com/peter-kozarec/vbroker/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type BarEventHandler EventHandler[common.Bar]
type EquityEventHandler EventHandler[common.Equity]
type BalanceEventHandler EventHandler[common.Balance]
type PositionOpenEventHandler EventHandler[common.Position]
type PositionCloseEventHandler EventHandler[common.ClosedPosition]
type PositionUpdateEventHandler EventHandler[common.Position]
type OrderEventHandler EventHandler[common.OrderRequest]
type OrderAcceptanceEventHandler EventHandler[common.PendingOrder]
type OrderCancelEventHandler EventHandler[common.CancelledOrder]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			if handler != nil {
				handler(ctx, event)
			}
		}
	}
}
