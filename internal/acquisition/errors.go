package acquisition

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Honey-Rajput/Stocks/internal/provider"
)

// ErrCode distinguishes provider failure modes so callers can apply
// different backoff policy upstream.
type ErrCode string

const (
	ErrCodeTimeout     ErrCode = "timeout"
	ErrCodeRateLimited ErrCode = "rate_limited"
	ErrCodeNoData      ErrCode = "no_data"
)

// FetchError is the typed per-ticker fetch failure. It is always
// recovered locally as a skip, never fatal to the batch.
type FetchError struct {
	Ticker string
	Code   ErrCode
	Err    error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Ticker, e.Code, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Ticker, e.Code)
}

// Unwrap returns the underlying cause
func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify maps an arbitrary provider error onto the error taxonomy.
func classify(err error) ErrCode {
	if errors.Is(err, provider.ErrRateLimited) {
		return ErrCodeRateLimited
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrCodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrCodeTimeout
	}

	return ErrCodeNoData
}
