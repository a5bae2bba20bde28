package eventmodels

import "time"

// TradeRecord is one row of the closed-trade journal, written on every close.
// The csv tags drive the trade-history export.
type TradeRecord struct {
	PositionID string    `json:"position_id" csv:"position_id"`
	Ticker     string    `json:"ticker" csv:"ticker"`
	Strike     float64   `json:"strike" csv:"strike"`
	Expiration string    `json:"expiration" csv:"expiration"`
	Right      string    `json:"right" csv:"right"`
	Contracts  int       `json:"contracts" csv:"contracts"`
	EntryPrice float64   `json:"entry_price" csv:"entry_price"`
	PnlPercent float64   `json:"pnl_percent" csv:"pnl_percent"`
	Reason     string    `json:"reason" csv:"reason"`
	ClosedAt   time.Time `json:"closed_at" csv:"closed_at"`
}

// PerformanceStats summarizes the trade journal for the stats endpoint.
type PerformanceStats struct {
	TotalTrades      int     `json:"total_trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	MeanPnlPercent   float64 `json:"mean_pnl_percent"`
	MedianPnlPercent float64 `json:"median_pnl_percent"`
	BestPnlPercent   float64 `json:"best_pnl_percent"`
	WorstPnlPercent  float64 `json:"worst_pnl_percent"`
}
