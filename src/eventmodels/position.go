package eventmodels

import "time"

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

type PositionSource string

const (
	// PositionSourceEngine marks positions opened by our own trade placement.
	PositionSourceEngine PositionSource = "engine"
	// PositionSourceExternal marks positions detected at the brokerage that
	// we did not open ourselves.
	PositionSourceExternal PositionSource = "external"
)

type OptionRight string

const (
	OptionRightCall OptionRight = "call"
	OptionRightPut  OptionRight = "put"
)

type OptionContract struct {
	Strike     float64     `json:"strike"`
	Expiration string      `json:"expiration"`
	Right      OptionRight `json:"right"`
}

// Position is an open or closed option position. ID is the brokerage option
// instrument id, which doubles as the natural key for reconciliation.
// TakeProfit and StopLoss are fractions (0.20 == 20%); nil disables the
// threshold. PnlPercent is refreshed each monitor cycle and is not
// authoritative between cycles.
type Position struct {
	ID          string         `json:"position_id"`
	Identity    string         `json:"identity"`
	Ticker      string         `json:"ticker"`
	Contract    OptionContract `json:"contract"`
	EntryPrice  float64        `json:"entry_price"`
	Contracts   int            `json:"contracts"`
	TakeProfit  *float64       `json:"take_profit"`
	StopLoss    *float64       `json:"stop_loss"`
	Status      PositionStatus `json:"status"`
	PnlPercent  float64        `json:"pnl_percent"`
	Source      PositionSource `json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	CloseReason string         `json:"close_reason,omitempty"`
}

const (
	CloseReasonTakeProfit = "Take Profit"
	CloseReasonStopLoss   = "Stop Loss"
	CloseReasonUserClose  = "User Close"
)
