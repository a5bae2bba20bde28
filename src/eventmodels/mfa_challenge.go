package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeStatus string

const (
	ChallengeStatusPending  ChallengeStatus = "pending"
	ChallengeStatusApproved ChallengeStatus = "approved"
	ChallengeStatusExpired  ChallengeStatus = "expired"
	ChallengeStatusFailed   ChallengeStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
// Challenge transitions are monotonic: pending -> approved|expired|failed,
// exactly one terminal transition per challenge.
func (s ChallengeStatus) IsTerminal() bool {
	return s != ChallengeStatusPending
}

// MFAChallenge tracks an out-of-band brokerage approval. The credentials are
// held so approval polls can re-query the brokerage; LoginAttempted ensures
// only the first poll triggers the login that fires the push notification.
type MFAChallenge struct {
	ID             uuid.UUID
	Credentials    Credentials
	Status         ChallengeStatus
	LoginAttempted bool
	CreatedAt      time.Time
	ExpiresAt      time.Time

	// SessionToken is set exactly once, on the pending -> approved
	// transition. Repeated checks after approval return the same session.
	SessionToken string
}

func NewMFAChallenge(creds Credentials, ttl time.Duration) *MFAChallenge {
	now := time.Now().UTC()
	return &MFAChallenge{
		ID:          uuid.New(),
		Credentials: creds,
		Status:      ChallengeStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func (c *MFAChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
