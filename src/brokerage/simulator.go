package brokerage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
)

// Simulator is an in-memory Gateway used for dry runs and tests. All state
// mutators are safe under concurrent callers.
type Simulator struct {
	mu sync.Mutex

	validCredentials map[string]string
	mfaRequired      bool
	approvedMfa      map[uuid.UUID]bool
	deniedMfa        map[uuid.UUID]bool

	positions map[string]eventmodels.PositionSnapshot
	pnl       map[string]float64

	unavailable  bool
	rejectOrders bool

	exitOrders []string
}

func NewSimulator() *Simulator {
	return &Simulator{
		validCredentials: make(map[string]string),
		approvedMfa:      make(map[uuid.UUID]bool),
		deniedMfa:        make(map[uuid.UUID]bool),
		positions:        make(map[string]eventmodels.PositionSnapshot),
		pnl:              make(map[string]float64),
	}
}

func (s *Simulator) AddAccount(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validCredentials[username] = password
}

// RequireMfa gates every login behind an approval poll.
func (s *Simulator) RequireMfa(required bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mfaRequired = required
}

func (s *Simulator) ApproveMfa(challengeID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.approvedMfa[challengeID] = true
}

func (s *Simulator) DenyMfa(challengeID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deniedMfa[challengeID] = true
}

func (s *Simulator) AddPosition(snapshot eventmodels.PositionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[snapshot.OptionID] = snapshot
	s.pnl[snapshot.OptionID] = snapshot.PnlPercent
}

func (s *Simulator) SetPnl(positionID string, pnlPercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pnl[positionID] = pnlPercent

	if snapshot, ok := s.positions[positionID]; ok {
		snapshot.PnlPercent = pnlPercent
		s.positions[positionID] = snapshot
	}
}

// SetUnavailable makes every call fail with ErrBrokerageUnavailable.
func (s *Simulator) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unavailable = unavailable
}

func (s *Simulator) RejectOrders(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectOrders = reject
}

// ExitOrders returns the position IDs of every exit order placed so far.
func (s *Simulator) ExitOrders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]string, len(s.exitOrders))
	copy(orders, s.exitOrders)

	return orders
}

func (s *Simulator) Login(ctx context.Context, creds eventmodels.Credentials) (*eventmodels.LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return nil, fmt.Errorf("Simulator:Login(): %w", eventmodels.ErrBrokerageUnavailable)
	}

	password, ok := s.validCredentials[creds.Username]
	if !ok || password != creds.Password {
		return nil, fmt.Errorf("Simulator:Login(): %w", eventmodels.ErrAuthentication)
	}

	if s.mfaRequired {
		return &eventmodels.LoginResult{MFARequired: true, Identity: creds.Username}, nil
	}

	return &eventmodels.LoginResult{Authenticated: true, Identity: creds.Username}, nil
}

func (s *Simulator) PollMfa(ctx context.Context, req *eventmodels.MfaPollRequest) (eventmodels.MfaPollStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return "", fmt.Errorf("Simulator:PollMfa(): %w", eventmodels.ErrBrokerageUnavailable)
	}

	if req.AttemptLogin {
		log.Debugf("simulator: login attempt for challenge %s", req.ChallengeID)
	}

	if s.deniedMfa[req.ChallengeID] {
		return eventmodels.MfaPollDenied, nil
	}

	if s.approvedMfa[req.ChallengeID] {
		return eventmodels.MfaPollApproved, nil
	}

	return eventmodels.MfaPollPending, nil
}

func (s *Simulator) ListOpenPositions(ctx context.Context, identity string) ([]eventmodels.PositionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return nil, fmt.Errorf("Simulator:ListOpenPositions(): %w", eventmodels.ErrBrokerageUnavailable)
	}

	snapshots := make([]eventmodels.PositionSnapshot, 0, len(s.positions))
	for _, snapshot := range s.positions {
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (s *Simulator) GetPnL(ctx context.Context, positionID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return 0, fmt.Errorf("Simulator:GetPnL(): %w", eventmodels.ErrBrokerageUnavailable)
	}

	pnl, ok := s.pnl[positionID]
	if !ok {
		return 0, fmt.Errorf("Simulator:GetPnL(): %w", eventmodels.ErrPositionNotFound)
	}

	return pnl, nil
}

func (s *Simulator) PlaceExitOrder(ctx context.Context, positionID string) (*eventmodels.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return nil, fmt.Errorf("Simulator:PlaceExitOrder(): %w", eventmodels.ErrBrokerageUnavailable)
	}

	if s.rejectOrders {
		return nil, fmt.Errorf("Simulator:PlaceExitOrder(): %w", eventmodels.ErrOrderRejected)
	}

	s.exitOrders = append(s.exitOrders, positionID)
	delete(s.positions, positionID)

	return &eventmodels.OrderResult{
		OrderID:   uuid.New().String(),
		Filled:    true,
		FillPrice: 0,
	}, nil
}
