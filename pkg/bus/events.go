package bus

type EventId uint8

const (
	BarEvent EventId = iota
	EquityEvent
	BalanceEvent
	PositionOpenEvent
	PositionCloseEvent
	PositionUpdateEvent
	OrderEvent
	OrderAcceptanceEvent
	OrderCancelEvent
)

func (id EventId) String() string {
	switch id {
	case BarEvent:
		return "bar"
	case EquityEvent:
		return "equity"
	case BalanceEvent:
		return "balance"
	case PositionOpenEvent:
		return "position_open"
	case PositionCloseEvent:
		return "position_close"
	case PositionUpdateEvent:
		return "position_update"
	case OrderEvent:
		return "order"
	case OrderAcceptanceEvent:
		return "order_acceptance"
	case OrderCancelEvent:
		return "order_cancel"
	default:
		return "unknown"
	}
}
