package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"optionsedge/src/eventmodels"
)

// MemoryStore keeps positions and trades in process memory. Field-level
// last-write-wins matches the postgres implementation: Save overwrites
// TP/SL, MarkClosed wins the status transition exactly once.
type MemoryStore struct {
	mu        sync.Mutex
	positions map[string]eventmodels.Position
	trades    []eventmodels.TradeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]eventmodels.Position),
	}
}

func (s *MemoryStore) ListOpen(ctx context.Context) ([]eventmodels.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var open []eventmodels.Position
	for _, position := range s.positions {
		if position.Status == eventmodels.PositionStatusOpen {
			open = append(open, position)
		}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})

	return open, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*eventmodels.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	position, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("MemoryStore:Get(): %w", eventmodels.ErrPositionNotFound)
	}

	return &position, nil
}

func (s *MemoryStore) Save(ctx context.Context, position *eventmodels.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[position.ID] = *position

	return nil
}

func (s *MemoryStore) MarkClosed(ctx context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	position, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("MemoryStore:MarkClosed(): %w", eventmodels.ErrPositionNotFound)
	}

	if position.Status == eventmodels.PositionStatusClosed {
		return fmt.Errorf("MemoryStore:MarkClosed(): %w", eventmodels.ErrPositionAlreadyClosed)
	}

	now := time.Now().UTC()
	position.Status = eventmodels.PositionStatusClosed
	position.ClosedAt = &now
	position.CloseReason = reason
	s.positions[id] = position

	return nil
}

func (s *MemoryStore) UpdatePnl(ctx context.Context, id string, pnlPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	position, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("MemoryStore:UpdatePnl(): %w", eventmodels.ErrPositionNotFound)
	}

	// a close that landed after the caller's read keeps its final pnl
	if position.Status == eventmodels.PositionStatusClosed {
		return nil
	}

	position.PnlPercent = pnlPercent
	s.positions[id] = position

	return nil
}

func (s *MemoryStore) RecordTrade(ctx context.Context, trade *eventmodels.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *trade)

	return nil
}

func (s *MemoryStore) ListTrades(ctx context.Context, limit int) ([]eventmodels.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := make([]eventmodels.TradeRecord, len(s.trades))
	copy(trades, s.trades)

	// newest first, matching the postgres ordering
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].ClosedAt.After(trades[j].ClosedAt)
	})

	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}

	return trades, nil
}
