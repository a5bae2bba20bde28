package eventservices

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"optionsedge/src/brokerage"
	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
	"optionsedge/src/store"
)

// TradeService is the single exit path for both monitor-triggered and
// user-triggered closes. The in-flight claim plus the pre-submit re-check
// guarantee at most one exit order per position per trigger within the
// process.
type TradeService struct {
	mu       sync.Mutex
	inFlight map[string]bool

	gateway brokerage.Gateway
	store   store.PositionStore
	hub     *eventpubsub.Hub
}

func NewTradeService(gateway brokerage.Gateway, positionStore store.PositionStore, hub *eventpubsub.Hub) *TradeService {
	return &TradeService{
		inFlight: make(map[string]bool),
		gateway:  gateway,
		store:    positionStore,
		hub:      hub,
	}
}

// ClosePosition re-checks that the position is still open, submits the exit
// order, marks it closed, journals the trade, and publishes the state
// change. Racing closers are resolved here: the loser returns
// ErrPositionAlreadyClosed without placing an order.
func (s *TradeService) ClosePosition(ctx context.Context, positionID string, reason string) error {
	s.mu.Lock()
	if s.inFlight[positionID] {
		s.mu.Unlock()
		return fmt.Errorf("TradeService:ClosePosition(): %w", eventmodels.ErrPositionAlreadyClosed)
	}
	s.inFlight[positionID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, positionID)
		s.mu.Unlock()
	}()

	// optimistic re-check immediately before submitting the sell order
	position, err := s.store.Get(ctx, positionID)
	if err != nil {
		return fmt.Errorf("TradeService:ClosePosition(): %w", err)
	}

	if position.Status != eventmodels.PositionStatusOpen {
		return fmt.Errorf("TradeService:ClosePosition(): %w", eventmodels.ErrPositionAlreadyClosed)
	}

	if _, err := s.gateway.PlaceExitOrder(ctx, positionID); err != nil {
		// the position remains open; the next cycle re-evaluates
		return fmt.Errorf("TradeService:ClosePosition(): failed to place exit order: %w", err)
	}

	if err := s.store.MarkClosed(ctx, positionID, reason); err != nil {
		return fmt.Errorf("TradeService:ClosePosition(): order placed but close not recorded: %w", err)
	}

	trade := &eventmodels.TradeRecord{
		PositionID: position.ID,
		Ticker:     position.Ticker,
		Strike:     position.Contract.Strike,
		Expiration: position.Contract.Expiration,
		Right:      string(position.Contract.Right),
		Contracts:  position.Contracts,
		EntryPrice: position.EntryPrice,
		PnlPercent: position.PnlPercent,
		Reason:     reason,
		ClosedAt:   time.Now().UTC(),
	}

	if err := s.store.RecordTrade(ctx, trade); err != nil {
		log.Errorf("TradeService:ClosePosition(): failed to record trade for %s: %v", positionID, err)
	}

	log.Infof("closed position %s (%s): %s at %.2f%%", position.ID, position.Ticker, reason, position.PnlPercent*100)

	s.hub.Publish(eventmodels.NewMessage(eventmodels.MessageTypePositionClosed, map[string]interface{}{
		"position_id": position.ID,
		"ticker":      position.Ticker,
		"reason":      reason,
		"pnl_percent": position.PnlPercent,
	}))

	return nil
}
