package eventmodels

import "fmt"

var (
	// ErrAuthentication is terminal for the login attempt: the user must retry with new credentials.
	ErrAuthentication = fmt.Errorf("authentication failed: invalid credentials")

	ErrChallengeNotFound = fmt.Errorf("mfa challenge not found")
	ErrChallengeExpired  = fmt.Errorf("mfa challenge expired")
	ErrSessionExpired    = fmt.Errorf("session expired or unknown")

	// ErrBrokerageUnavailable is transient: the next monitor cycle retries naturally.
	ErrBrokerageUnavailable = fmt.Errorf("brokerage unavailable")

	// ErrOrderRejected is surfaced to the caller; the position remains open.
	ErrOrderRejected = fmt.Errorf("order rejected by brokerage")

	ErrJobAlreadyRunning = fmt.Errorf("analysis job already running")

	ErrPositionNotFound      = fmt.Errorf("position not found")
	ErrPositionAlreadyClosed = fmt.Errorf("position already closed")
)
