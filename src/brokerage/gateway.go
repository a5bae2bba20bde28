// Package brokerage defines the Gateway capability interface the core
// consumes, plus a Robinhood HTTP client and an in-memory simulator.
package brokerage

import (
	"context"

	"optionsedge/src/eventmodels"
)

// Gateway abstracts the brokerage. Every method is a synchronous, blocking
// call; callers on the scheduling path must offload these to the bounded
// worker pool.
type Gateway interface {
	// Login attempts a credential login. It returns a result with
	// MFARequired set when the brokerage demands out-of-band approval, and
	// eventmodels.ErrAuthentication on bad credentials.
	Login(ctx context.Context, creds eventmodels.Credentials) (*eventmodels.LoginResult, error)

	// PollMfa re-queries approval status for a pending challenge.
	PollMfa(ctx context.Context, req *eventmodels.MfaPollRequest) (eventmodels.MfaPollStatus, error)

	// ListOpenPositions returns the brokerage-side view of the identity's
	// open option positions.
	ListOpenPositions(ctx context.Context, identity string) ([]eventmodels.PositionSnapshot, error)

	// GetPnL returns the current profit/loss fraction for one position.
	GetPnL(ctx context.Context, positionID string) (float64, error)

	// PlaceExitOrder submits a closing sell order for the full position.
	PlaceExitOrder(ctx context.Context, positionID string) (*eventmodels.OrderResult, error)
}
