package services

import (
	"errors"
	"fmt"
)

// ErrStoreClosed is returned by trust operations before Open or after Close.
var ErrStoreClosed = errors.New("trust store is not open")

// RateLimitError rejects a rating submitted inside the cooldown window.
// CooldownRemaining is in whole days and is zero for invalid input.
type RateLimitError struct {
	Message           string
	CooldownRemaining int
}

func (e *RateLimitError) Error() string {
	if e.CooldownRemaining > 0 {
		return fmt.Sprintf("rate limited: %s (%d days remaining)", e.Message, e.CooldownRemaining)
	}
	return "rate limited: " + e.Message
}
