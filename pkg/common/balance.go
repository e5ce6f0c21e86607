package common

import (
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/utility"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

type Balance struct {
	Source      string              `json:"src,omitempty"`
	Account     string              `json:"account,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts,omitempty"`
	Value       fixed.Point         `json:"value"`
}

type Equity struct {
	Source      string              `json:"src,omitempty"`
	Account     string              `json:"account,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts,omitempty"`
	Value       fixed.Point         `json:"value"`
}

func (b Balance) Fields() []zap.Field {
	return []zap.Field{zap.Time("ts", b.TimeStamp), zap.String("balance", b.Value.String())}
}

func (e Equity) Fields() []zap.Field {
	return []zap.Field{zap.Time("ts", e.TimeStamp), zap.String("equity", e.Value.String())}
}

// Account is a point-in-time copy of the account ledger.
type Account struct {
	Balance          fixed.Point `json:"balance"`
	MarginUsed       fixed.Point `json:"margin_used"`
	MarginAvailable  fixed.Point `json:"margin_available"`
	UnrealizedPL     fixed.Point `json:"unrealized_pl"`
	NAV              fixed.Point `json:"nav"`
	PeakValue        fixed.Point `json:"peak_value"`
	LowValue         fixed.Point `json:"low_value"`
	MaxDrawdown      fixed.Point `json:"max_drawdown"`
	TotalTrades      int         `json:"total_trades"`
	ProfitableTrades int         `json:"profitable_trades"`
}
