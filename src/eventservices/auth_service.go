package eventservices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/brokerage"
	"optionsedge/src/eventmodels"
	"optionsedge/src/utils"
)

// LoginOutcome is either a minted session or a pending MFA challenge id.
type LoginOutcome struct {
	Session     *eventmodels.Session
	ChallengeID *uuid.UUID
}

// CheckChallengeOutcome: Pending while the brokerage has not approved yet,
// otherwise the session minted on approval.
type CheckChallengeOutcome struct {
	Pending bool
	Session *eventmodels.Session
}

// AuthService owns the canonical session and MFA challenge state machines.
// Clients polling CheckChallenge are observers only; every transition rule
// (TTL, monotonicity, single session per approval) lives here.
type AuthService struct {
	mu         sync.Mutex
	gateway    brokerage.Gateway
	sessions   map[string]*eventmodels.Session
	challenges map[uuid.UUID]*eventmodels.MFAChallenge

	sessionTTL   time.Duration
	challengeTTL time.Duration

	// onSessionIssued arms the position monitor; session issuance is the
	// only event that does.
	onSessionIssued func(identity string)
}

func NewAuthService(gateway brokerage.Gateway, sessionTTL, challengeTTL time.Duration, onSessionIssued func(identity string)) *AuthService {
	return &AuthService{
		gateway:         gateway,
		sessions:        make(map[string]*eventmodels.Session),
		challenges:      make(map[uuid.UUID]*eventmodels.MFAChallenge),
		sessionTTL:      sessionTTL,
		challengeTTL:    challengeTTL,
		onSessionIssued: onSessionIssued,
	}
}

// Login delegates to the brokerage. MFA-gated accounts get a pending
// challenge; direct logins get a session. Bad credentials fail with
// eventmodels.ErrAuthentication.
func (s *AuthService) Login(ctx context.Context, creds eventmodels.Credentials) (*LoginOutcome, error) {
	result, err := s.gateway.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("AuthService:Login(): %w", err)
	}

	if result.MFARequired {
		challenge := eventmodels.NewMFAChallenge(creds, s.challengeTTL)

		s.mu.Lock()
		s.challenges[challenge.ID] = challenge
		s.mu.Unlock()

		log.Infof("login for %s requires MFA, created challenge %s", creds.Username, challenge.ID)

		challengeID := challenge.ID

		return &LoginOutcome{ChallengeID: &challengeID}, nil
	}

	if !result.Authenticated {
		return nil, fmt.Errorf("AuthService:Login(): %w", eventmodels.ErrAuthentication)
	}

	session, err := s.mintSession(result.Identity)
	if err != nil {
		return nil, fmt.Errorf("AuthService:Login(): %w", err)
	}

	return &LoginOutcome{Session: session}, nil
}

// CheckChallenge is polled by the client every few seconds. The first poll
// triggers the brokerage login (firing the push notification); later polls
// only query approval status. The pending -> approved transition is
// idempotent: repeated calls after approval keep returning the same session.
func (s *AuthService) CheckChallenge(ctx context.Context, challengeID uuid.UUID) (*CheckChallengeOutcome, error) {
	s.mu.Lock()

	challenge, ok := s.challenges[challengeID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("AuthService:CheckChallenge(): %w", eventmodels.ErrChallengeNotFound)
	}

	if challenge.Status == eventmodels.ChallengeStatusApproved {
		session := s.sessions[challenge.SessionToken]
		s.mu.Unlock()

		return &CheckChallengeOutcome{Session: session}, nil
	}

	if challenge.Status == eventmodels.ChallengeStatusFailed {
		s.mu.Unlock()
		return nil, fmt.Errorf("AuthService:CheckChallenge(): %w", eventmodels.ErrAuthentication)
	}

	if challenge.Status == eventmodels.ChallengeStatusExpired || challenge.IsExpired(time.Now().UTC()) {
		challenge.Status = eventmodels.ChallengeStatusExpired
		s.mu.Unlock()

		return nil, fmt.Errorf("AuthService:CheckChallenge(): %w", eventmodels.ErrChallengeExpired)
	}

	attemptLogin := !challenge.LoginAttempted
	challenge.LoginAttempted = true
	creds := challenge.Credentials

	// the gateway poll is a blocking call; never hold the lock across it
	s.mu.Unlock()

	pollStatus, err := s.gateway.PollMfa(ctx, &eventmodels.MfaPollRequest{
		ChallengeID:  challengeID,
		Credentials:  creds,
		AttemptLogin: attemptLogin,
	})
	if err != nil {
		// gateway hiccups are not terminal for the challenge
		log.Warnf("AuthService:CheckChallenge(): mfa poll failed, returning pending: %v", err)
		return &CheckChallengeOutcome{Pending: true}, nil
	}

	switch pollStatus {
	case eventmodels.MfaPollApproved:
		return s.approveChallenge(challengeID, creds.Username)
	case eventmodels.MfaPollDenied:
		s.mu.Lock()
		if challenge.Status == eventmodels.ChallengeStatusPending {
			challenge.Status = eventmodels.ChallengeStatusFailed
		}
		s.mu.Unlock()

		return nil, fmt.Errorf("AuthService:CheckChallenge(): %w", eventmodels.ErrAuthentication)
	default:
		return &CheckChallengeOutcome{Pending: true}, nil
	}
}

func (s *AuthService) approveChallenge(challengeID uuid.UUID, identity string) (*CheckChallengeOutcome, error) {
	s.mu.Lock()

	challenge, ok := s.challenges[challengeID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("AuthService:approveChallenge(): %w", eventmodels.ErrChallengeNotFound)
	}

	// a concurrent poll may have won the transition; reuse its session
	if challenge.Status == eventmodels.ChallengeStatusApproved {
		session := s.sessions[challenge.SessionToken]
		s.mu.Unlock()

		return &CheckChallengeOutcome{Session: session}, nil
	}

	if challenge.Status.IsTerminal() {
		s.mu.Unlock()
		return nil, fmt.Errorf("AuthService:approveChallenge(): %w", eventmodels.ErrChallengeExpired)
	}

	session, err := s.mintSessionLocked(identity)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("AuthService:approveChallenge(): %w", err)
	}

	challenge.Status = eventmodels.ChallengeStatusApproved
	challenge.SessionToken = session.Token
	s.mu.Unlock()

	log.Infof("MFA approved for challenge %s, session issued", challengeID)

	if s.onSessionIssued != nil {
		s.onSessionIssued(identity)
	}

	return &CheckChallengeOutcome{Session: session}, nil
}

// Validate checks the bearer token against expiry and revocation. Pure read,
// no side effects.
func (s *AuthService) Validate(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok || !session.IsValid(time.Now().UTC()) {
		return "", fmt.Errorf("AuthService:Validate(): %w", eventmodels.ErrSessionExpired)
	}

	return session.Identity, nil
}

// Logout revokes the session. Idempotent; revoking an unknown token is a
// no-op.
func (s *AuthService) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[token]; ok {
		session.Revoked = true
	}
}

// ActiveIdentities lists identities holding at least one live session; the
// monitor polls brokerage positions for each.
func (s *AuthService) ActiveIdentities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	seen := make(map[string]bool)

	var identities []string
	for _, session := range s.sessions {
		if session.IsValid(now) && !seen[session.Identity] {
			seen[session.Identity] = true
			identities = append(identities, session.Identity)
		}
	}

	return identities
}

func (s *AuthService) mintSession(identity string) (*eventmodels.Session, error) {
	s.mu.Lock()

	session, err := s.mintSessionLocked(identity)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Unlock()

	if s.onSessionIssued != nil {
		s.onSessionIssued(identity)
	}

	return session, nil
}

func (s *AuthService) mintSessionLocked(identity string) (*eventmodels.Session, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &eventmodels.Session{
		Token:                  token,
		Identity:               identity,
		BrokerageAuthenticated: true,
		CreatedAt:              now,
		ExpiresAt:              now.Add(s.sessionTTL),
	}

	s.sessions[token] = session

	return session, nil
}
