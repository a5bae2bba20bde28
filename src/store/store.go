// Package store persists positions and the closed-trade journal. The
// postgres implementation is the durable source of truth for status and
// TP/SL; the memory implementation backs tests and dry runs with the same
// semantics.
package store

import (
	"context"

	"optionsedge/src/eventmodels"
)

// PositionStore is the single source of truth for position status and
// thresholds. All methods must be safe under concurrent callers. MarkClosed
// is the idempotency backstop: closing an already-closed position fails with
// eventmodels.ErrPositionAlreadyClosed.
type PositionStore interface {
	ListOpen(ctx context.Context) ([]eventmodels.Position, error)
	Get(ctx context.Context, id string) (*eventmodels.Position, error)
	Save(ctx context.Context, position *eventmodels.Position) error
	MarkClosed(ctx context.Context, id string, reason string) error

	// UpdatePnl refreshes pnl_percent for an open position. A position that
	// closed since the caller read it is left untouched: the close keeps its
	// final pnl and must never be reverted by a stale row.
	UpdatePnl(ctx context.Context, id string, pnlPercent float64) error

	RecordTrade(ctx context.Context, trade *eventmodels.TradeRecord) error
	ListTrades(ctx context.Context, limit int) ([]eventmodels.TradeRecord, error)
}
