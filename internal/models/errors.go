package models

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a brokerage response that failed shape validation.
var ErrMalformedResponse = errors.New("malformed brokerage response")

// AuthRequiredError means the stored access token is missing, expired or was
// rejected. Callers should send the user through the login flow instead of retrying.
type AuthRequiredError struct {
	AccountID string
	Message   string
}

func (e *AuthRequiredError) Error() string {
	if e.Message == "" {
		return "Kite authentication required."
	}
	return e.Message
}

// IsAuthRequired reports whether err carries an AuthRequiredError.
func IsAuthRequired(err error) bool {
	var authErr *AuthRequiredError
	return errors.As(err, &authErr)
}

// SyncError wraps a non-authentication failure of an account sync.
type SyncError struct {
	AccountID string
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.AccountID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ErrUnknownAccount is returned for an account id that is not configured.
var ErrUnknownAccount = errors.New("unknown account")

// ErrMarketDataUnavailable is returned by market views when no quote
// provider is configured.
var ErrMarketDataUnavailable = errors.New("market data provider not configured")

// ErrNoManualHoldings is returned when the manual holdings document is absent.
var ErrNoManualHoldings = errors.New("no manual holdings found")

// ErrEmptyQuery is returned for a blank search query.
var ErrEmptyQuery = errors.New("query parameter is required")
