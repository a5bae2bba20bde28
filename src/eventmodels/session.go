package eventmodels

import "time"

// Session is a bearer credential proving an authenticated brokerage identity.
// The token is opaque and single-use at issuance; expiry is checked lazily at
// access time.
type Session struct {
	Token                  string    `json:"token"`
	Identity               string    `json:"identity"`
	BrokerageAuthenticated bool      `json:"brokerage_authenticated"`
	CreatedAt              time.Time `json:"created_at"`
	ExpiresAt              time.Time `json:"expires_at"`
	Revoked                bool      `json:"-"`
}

func (s *Session) IsValid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
