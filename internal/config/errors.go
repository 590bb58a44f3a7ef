package config

import (
	"errors"
	"time"
)

// Sentinel errors for internal use.
var (
	ErrInvalidConfig       = errors.New("invalid config")
	ErrInvalidInput        = errors.New("invalid input")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderTimeout     = errors.New("provider request timeout")
	ErrCircuitOpen         = errors.New("circuit breaker is open")
	ErrMalformedResponse   = errors.New("malformed contract response")
	ErrCallReverted        = errors.New("contract call reverted")
	ErrNetworkMismatch     = errors.New("rpc endpoint serves a different network")
	ErrInvalidMetadataHash = errors.New("invalid metadata hash")
	ErrMetadataFetchFailed = errors.New("metadata fetch failed")
	ErrPriceFetchFailed    = errors.New("price fetch failed")
	ErrRefreshInProgress   = errors.New("refresh already in progress")
	ErrSystemErrorNotFound = errors.New("system error not found")
)

// TransientError wraps an error that should be retried.
type TransientError struct {
	Err        error
	RetryAfter time.Duration // 0 = use default backoff
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient (retriable).
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NewTransientErrorWithRetry wraps with explicit retry delay.
func NewTransientErrorWithRetry(err error, retryAfter time.Duration) error {
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

// IsTransient returns true if the error is transient (retriable).
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// GetRetryAfter returns the retry delay if set, or 0.
func GetRetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// Error codes shared with API clients.
const (
	ErrorDatabase            = "ERROR_DATABASE"
	ErrorInvalidAddress      = "ERROR_INVALID_ADDRESS"
	ErrorInvalidCampaignID   = "ERROR_INVALID_CAMPAIGN_ID"
	ErrorCampaignNotFound    = "ERROR_CAMPAIGN_NOT_FOUND"
	ErrorInvalidInput        = "ERROR_INVALID_INPUT"
	ErrorInvalidConfig       = "ERROR_INVALID_CONFIG"
	ErrorProviderUnavailable = "ERROR_PROVIDER_UNAVAILABLE"
	ErrorCircuitOpen         = "ERROR_CIRCUIT_OPEN"
	ErrorRefreshFailed       = "ERROR_REFRESH_FAILED"
	ErrorRefreshInProgress   = "ERROR_REFRESH_IN_PROGRESS"
	ErrorStreamUnsupported   = "ERROR_STREAM_UNSUPPORTED"
	ErrorNotFound            = "ERROR_NOT_FOUND"
	ErrorInternal            = "ERROR_INTERNAL"
)
