// Package netutil classifies Bot API call failures for retries and logs.
package netutil

import (
	"errors"
	"net"
	"time"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether err is transient: a timeout, a failed dial or
// Telegram flood control.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if _, flood := RetryAfter(err); flood {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// RetryAfter returns the wait Telegram asked for in a flood error.
func RetryAfter(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	return 0, false
}
