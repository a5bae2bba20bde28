package eventmodels

import "github.com/google/uuid"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the brokerage's answer to a credential login: either fully
// authenticated, or gated behind an out-of-band MFA approval.
type LoginResult struct {
	Authenticated bool
	MFARequired   bool
	Identity      string
}

type MfaPollStatus string

const (
	MfaPollPending  MfaPollStatus = "pending"
	MfaPollApproved MfaPollStatus = "approved"
	MfaPollDenied   MfaPollStatus = "denied"
)

// MfaPollRequest re-queries the brokerage for approval status.
// AttemptLogin is true only on the first poll for a challenge; later polls
// must not trigger a second push notification.
type MfaPollRequest struct {
	ChallengeID  uuid.UUID
	Credentials  Credentials
	AttemptLogin bool
}

// PositionSnapshot is the gateway-side view of a live position, used to
// refresh pnl and to detect externally opened positions.
type PositionSnapshot struct {
	OptionID   string
	Ticker     string
	Contract   OptionContract
	Quantity   int
	EntryPrice float64
	PnlPercent float64
}

type OrderResult struct {
	OrderID   string
	Filled    bool
	FillPrice float64
}
