package eventconsumers

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"optionsedge/src/brokerage"
	"optionsedge/src/eventmodels"
	"optionsedge/src/eventpubsub"
	"optionsedge/src/eventservices"
	"optionsedge/src/store"
)

// IdentitySource reports which identities currently hold a live session.
type IdentitySource interface {
	ActiveIdentities() []string
}

// PositionMonitorWorker is the background risk engine. Each cycle it
// reconciles tracked positions against the brokerage, refreshes pnl with a
// bounded fan-out, and delegates take-profit / stop-loss exits to the trade
// service. The worker starts disarmed and only begins acting once a session
// has been issued.
type PositionMonitorWorker struct {
	wg         *sync.WaitGroup
	identities IdentitySource
	gateway    brokerage.Gateway
	store      store.PositionStore
	trades     *eventservices.TradeService
	hub        *eventpubsub.Hub
	cfg        eventmodels.RiskConfig

	mu    sync.Mutex
	armed bool
}

func NewPositionMonitorWorker(wg *sync.WaitGroup, identities IdentitySource, gateway brokerage.Gateway, positionStore store.PositionStore, trades *eventservices.TradeService, hub *eventpubsub.Hub, cfg eventmodels.RiskConfig) *PositionMonitorWorker {
	return &PositionMonitorWorker{
		wg:         wg,
		identities: identities,
		gateway:    gateway,
		store:      positionStore,
		trades:     trades,
		hub:        hub,
		cfg:        cfg,
	}
}

// Arm enables monitoring. Called on session issuance; idempotent.
func (w *PositionMonitorWorker) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.armed {
		log.Info("position monitor armed")
	}

	w.armed = true
}

func (w *PositionMonitorWorker) isArmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.armed
}

// interval is the wait until the next cycle: the logged-out backoff while
// disarmed or no identity is live, the normal cadence otherwise.
func (w *PositionMonitorWorker) interval() time.Duration {
	if w.isArmed() && len(w.identities.ActiveIdentities()) > 0 {
		return w.cfg.MonitorInterval
	}

	return w.cfg.LoggedOutInterval
}

func (w *PositionMonitorWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		timer := time.NewTimer(w.interval())
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				w.safeRunCycle(ctx)
				timer.Reset(w.interval())
			case <-ctx.Done():
				log.Info("stopping PositionMonitorWorker consumer")
				return
			}
		}
	}()
}

// safeRunCycle keeps a panicking cycle from killing the monitor loop.
func (w *PositionMonitorWorker) safeRunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("PositionMonitorWorker: recovered from panic in cycle: %v", r)
		}
	}()

	w.runCycle(ctx)
}

// runCycle performs one full monitoring pass. A brokerage outage aborts the
// cycle without touching any position; the next cycle retries from scratch.
func (w *PositionMonitorWorker) runCycle(ctx context.Context) {
	if !w.isArmed() {
		return
	}

	identities := w.identities.ActiveIdentities()
	if len(identities) == 0 {
		log.Debug("monitor cycle skipped: no live sessions")
		return
	}

	snapshots := make(map[string]eventmodels.PositionSnapshot)
	for _, identity := range identities {
		identitySnapshots, err := w.gateway.ListOpenPositions(ctx, identity)
		if err != nil {
			log.Warnf("PositionMonitorWorker:runCycle(): brokerage unavailable for %s, skipping cycle: %v", identity, err)
			return
		}

		for _, snapshot := range identitySnapshots {
			snapshots[snapshot.OptionID] = snapshot
		}

		if err := w.reconcile(ctx, identity, identitySnapshots); err != nil {
			log.Errorf("PositionMonitorWorker:runCycle(): reconcile failed for %s: %v", identity, err)
			return
		}
	}

	tracked, err := w.store.ListOpen(ctx)
	if err != nil {
		log.Errorf("PositionMonitorWorker:runCycle(): failed to list open positions: %v", err)
		return
	}

	w.refreshPnl(ctx, tracked, snapshots)

	for i := range tracked {
		w.checkTriggers(ctx, &tracked[i])
	}
}

// reconcile adopts brokerage positions the store does not know about yet,
// applying the default take-profit and stop-loss thresholds.
func (w *PositionMonitorWorker) reconcile(ctx context.Context, identity string, snapshots []eventmodels.PositionSnapshot) error {
	for _, snapshot := range snapshots {
		if _, err := w.store.Get(ctx, snapshot.OptionID); err == nil {
			continue
		} else if !errors.Is(err, eventmodels.ErrPositionNotFound) {
			return err
		}

		takeProfit := w.cfg.DefaultTakeProfit
		stopLoss := w.cfg.DefaultStopLoss

		position := &eventmodels.Position{
			ID:         snapshot.OptionID,
			Identity:   identity,
			Ticker:     snapshot.Ticker,
			Contract:   snapshot.Contract,
			EntryPrice: snapshot.EntryPrice,
			Contracts:  snapshot.Quantity,
			TakeProfit: &takeProfit,
			StopLoss:   &stopLoss,
			Status:     eventmodels.PositionStatusOpen,
			PnlPercent: snapshot.PnlPercent,
			Source:     eventmodels.PositionSourceExternal,
			CreatedAt:  time.Now().UTC(),
		}

		if err := w.store.Save(ctx, position); err != nil {
			return err
		}

		log.Infof("adopted external position %s (%s) for %s", position.ID, position.Ticker, identity)

		w.hub.Publish(eventmodels.NewMessage(eventmodels.MessageTypePositionOpened, map[string]interface{}{
			"position_id": position.ID,
			"ticker":      position.Ticker,
			"source":      string(position.Source),
		}))
	}

	return nil
}

// refreshPnl fans pnl lookups out to the gateway, at most FanOutLimit in
// flight at once, and persists the updated figures. A failed lookup leaves
// the previous pnl in place for this cycle.
//
// Persistence is pnl-only: a close or threshold edit that lands between the
// listing and this write must not be overwritten by the cycle's stale rows.
func (w *PositionMonitorWorker) refreshPnl(ctx context.Context, tracked []eventmodels.Position, snapshots map[string]eventmodels.PositionSnapshot) {
	semaphore := make(chan struct{}, w.cfg.FanOutLimit)

	var wg sync.WaitGroup
	for i := range tracked {
		position := &tracked[i]

		// the listing already carries pnl for positions it covered
		if snapshot, ok := snapshots[position.ID]; ok {
			position.PnlPercent = snapshot.PnlPercent
			continue
		}

		wg.Add(1)
		go func(position *eventmodels.Position) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			pnl, err := w.gateway.GetPnL(ctx, position.ID)
			if err != nil {
				log.Warnf("PositionMonitorWorker:refreshPnl(): pnl lookup failed for %s: %v", position.ID, err)
				return
			}

			position.PnlPercent = pnl
		}(position)
	}

	wg.Wait()

	for i := range tracked {
		if err := w.store.UpdatePnl(ctx, tracked[i].ID, tracked[i].PnlPercent); err != nil {
			log.Errorf("PositionMonitorWorker:refreshPnl(): failed to persist pnl for %s: %v", tracked[i].ID, err)
		}
	}
}

// checkTriggers evaluates take-profit before stop-loss, so a position past
// both thresholds in one cycle exits as a win.
func (w *PositionMonitorWorker) checkTriggers(ctx context.Context, position *eventmodels.Position) {
	var reason string

	switch {
	case position.TakeProfit != nil && position.PnlPercent >= *position.TakeProfit:
		reason = eventmodels.CloseReasonTakeProfit
	case position.StopLoss != nil && position.PnlPercent <= -*position.StopLoss:
		reason = eventmodels.CloseReasonStopLoss
	default:
		return
	}

	log.Infof("trigger hit for %s (%s): %s at %.2f%%", position.ID, position.Ticker, reason, position.PnlPercent*100)

	if err := w.trades.ClosePosition(ctx, position.ID, reason); err != nil {
		if errors.Is(err, eventmodels.ErrPositionAlreadyClosed) {
			// a user close won the race; nothing to do
			return
		}

		log.Errorf("PositionMonitorWorker:checkTriggers(): failed to close %s: %v", position.ID, err)
	}
}
