package common

import (
	"errors"
	"fmt"
)

// ErrNoPriceData is returned when market data lacks the fields needed to
// derive a price (empty book side, no populated ticker field).
var ErrNoPriceData = errors.New("no price data")

// AuthError reports a rejected signature or bearer token. Gateways retry the
// call once after re-authenticating; a second failure surfaces this error.
type AuthError struct {
	Venue  string
	Op     string
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: authentication rejected (status %d): %s", e.Venue, e.Op, e.Status, e.Body)
}

// RejectionError reports a non-success venue response. Status 0 marks a
// transport-level failure (connection, timeout) with Body holding the cause.
type RejectionError struct {
	Venue  string
	Op     string
	Status int
	Body   string
}

func (e *RejectionError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: transport: %s", e.Venue, e.Op, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Venue, e.Op, e.Status, e.Body)
}

// ReconciliationError reports a position that remained open after a close
// attempt. The cycle must abort rather than place a fresh entry on top.
type ReconciliationError struct {
	Venue     string
	Symbol    string
	Remaining string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s %s: position still open after close, remaining %s", e.Venue, e.Symbol, e.Remaining)
}

// IsAuthStatus reports whether an HTTP status indicates rejected credentials.
func IsAuthStatus(status int) bool {
	return status == 401 || status == 403
}
