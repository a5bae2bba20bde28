package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionsedge/src/eventmodels"
)

func newOpenPosition(id string) *eventmodels.Position {
	tp := 0.30
	sl := 0.25

	return &eventmodels.Position{
		ID:       id,
		Identity: "trader1",
		Ticker:   "AAPL",
		Contract: eventmodels.OptionContract{
			Strike:     150,
			Expiration: "2026-09-18",
			Right:      eventmodels.OptionRightCall,
		},
		EntryPrice: 320,
		Contracts:  2,
		TakeProfit: &tp,
		StopLoss:   &sl,
		Status:     eventmodels.PositionStatusOpen,
		Source:     eventmodels.PositionSourceEngine,
		CreatedAt:  time.Now().UTC(),
	}
}

func Test_MemoryStore_MarkClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("closes an open position", func(t *testing.T) {
		// arrange
		s := NewMemoryStore()
		require.NoError(t, s.Save(ctx, newOpenPosition("opt-1")))

		// act
		err := s.MarkClosed(ctx, "opt-1", eventmodels.CloseReasonTakeProfit)

		// assert
		require.NoError(t, err)

		position, err := s.Get(ctx, "opt-1")
		require.NoError(t, err)
		assert.Equal(t, eventmodels.PositionStatusClosed, position.Status)
		assert.Equal(t, eventmodels.CloseReasonTakeProfit, position.CloseReason)
		assert.NotNil(t, position.ClosedAt)
	})

	t.Run("closing twice fails with already closed", func(t *testing.T) {
		// arrange
		s := NewMemoryStore()
		require.NoError(t, s.Save(ctx, newOpenPosition("opt-1")))
		require.NoError(t, s.MarkClosed(ctx, "opt-1", eventmodels.CloseReasonUserClose))

		// act
		err := s.MarkClosed(ctx, "opt-1", eventmodels.CloseReasonStopLoss)

		// assert
		assert.ErrorIs(t, err, eventmodels.ErrPositionAlreadyClosed)

		position, getErr := s.Get(ctx, "opt-1")
		require.NoError(t, getErr)
		assert.Equal(t, eventmodels.CloseReasonUserClose, position.CloseReason)
	})

	t.Run("closing an unknown position fails with not found", func(t *testing.T) {
		s := NewMemoryStore()

		err := s.MarkClosed(ctx, "missing", eventmodels.CloseReasonUserClose)

		assert.ErrorIs(t, err, eventmodels.ErrPositionNotFound)
	})
}

func Test_MemoryStore_UpdatePnl(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes pnl on an open position", func(t *testing.T) {
		// arrange
		s := NewMemoryStore()
		require.NoError(t, s.Save(ctx, newOpenPosition("opt-1")))

		// act
		err := s.UpdatePnl(ctx, "opt-1", 0.12)

		// assert
		require.NoError(t, err)

		position, getErr := s.Get(ctx, "opt-1")
		require.NoError(t, getErr)
		assert.InDelta(t, 0.12, position.PnlPercent, 1e-9)
	})

	t.Run("leaves a closed position untouched", func(t *testing.T) {
		// arrange
		s := NewMemoryStore()
		position := newOpenPosition("opt-1")
		position.PnlPercent = 0.35
		require.NoError(t, s.Save(ctx, position))
		require.NoError(t, s.MarkClosed(ctx, "opt-1", eventmodels.CloseReasonUserClose))

		// act
		err := s.UpdatePnl(ctx, "opt-1", -0.05)

		// assert: the close keeps its status and final pnl
		require.NoError(t, err)

		closed, getErr := s.Get(ctx, "opt-1")
		require.NoError(t, getErr)
		assert.Equal(t, eventmodels.PositionStatusClosed, closed.Status)
		assert.Equal(t, eventmodels.CloseReasonUserClose, closed.CloseReason)
		assert.InDelta(t, 0.35, closed.PnlPercent, 1e-9)
	})

	t.Run("unknown position fails with not found", func(t *testing.T) {
		s := NewMemoryStore()

		err := s.UpdatePnl(ctx, "missing", 0.10)

		assert.ErrorIs(t, err, eventmodels.ErrPositionNotFound)
	})
}

func Test_MemoryStore_ListOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes closed positions", func(t *testing.T) {
		// arrange
		s := NewMemoryStore()
		require.NoError(t, s.Save(ctx, newOpenPosition("opt-1")))
		require.NoError(t, s.Save(ctx, newOpenPosition("opt-2")))
		require.NoError(t, s.MarkClosed(ctx, "opt-1", eventmodels.CloseReasonUserClose))

		// act
		open, err := s.ListOpen(ctx)

		// assert
		require.NoError(t, err)
		require.Equal(t, 1, len(open))
		assert.Equal(t, "opt-2", open[0].ID)
	})
}

func Test_MemoryStore_Trades(t *testing.T) {
	ctx := context.Background()

	t.Run("list trades respects limit, newest first", func(t *testing.T) {
		// arrange
		s := NewMemoryStore()
		base := time.Now().UTC()

		for i := 0; i < 3; i++ {
			trade := &eventmodels.TradeRecord{
				PositionID: "opt-1",
				Ticker:     "AAPL",
				PnlPercent: 0.10 * float64(i),
				Reason:     eventmodels.CloseReasonTakeProfit,
				ClosedAt:   base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, s.RecordTrade(ctx, trade))
		}

		// act
		trades, err := s.ListTrades(ctx, 2)

		// assert
		require.NoError(t, err)
		require.Equal(t, 2, len(trades))
		assert.InDelta(t, 0.20, trades[0].PnlPercent, 1e-9)
		assert.InDelta(t, 0.10, trades[1].PnlPercent, 1e-9)
	})
}
