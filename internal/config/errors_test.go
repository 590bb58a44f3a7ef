package config

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTransientError_Wrap(t *testing.T) {
	original := errors.New("connection refused")
	wrapped := NewTransientError(original)

	if wrapped.Error() != "connection refused" {
		t.Errorf("expected 'connection refused', got %q", wrapped.Error())
	}

	unwrapped := errors.Unwrap(wrapped)
	if unwrapped != original {
		t.Errorf("expected original error, got %v", unwrapped)
	}
}

func TestTransientError_IsTransient(t *testing.T) {
	transient := NewTransientError(errors.New("timeout"))
	if !IsTransient(transient) {
		t.Error("expected IsTransient() = true for transient error")
	}

	wrapped := fmt.Errorf("rpc call failed: %w", transient)
	if !IsTransient(wrapped) {
		t.Error("expected IsTransient() = true for wrapped transient error")
	}
}

func TestTransientError_WithRetryAfter(t *testing.T) {
	err := NewTransientErrorWithRetry(errors.New("rate limited"), 5*time.Second)

	if GetRetryAfter(err) != 5*time.Second {
		t.Errorf("expected retry after 5s, got %v", GetRetryAfter(err))
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if GetRetryAfter(wrapped) != 5*time.Second {
		t.Errorf("expected retry after 5s for wrapped, got %v", GetRetryAfter(wrapped))
	}
}

func TestPermanentError_NotTransient(t *testing.T) {
	if IsTransient(ErrCampaignNotFound) {
		t.Error("expected IsTransient() = false for sentinel error")
	}
	if GetRetryAfter(ErrCampaignNotFound) != 0 {
		t.Error("expected GetRetryAfter() = 0 for non-transient error")
	}
}

func TestTransientError_PreservesSentinel(t *testing.T) {
	err := NewTransientError(fmt.Errorf("%w: dial tcp", ErrProviderUnavailable))
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Error("expected errors.Is to find ErrProviderUnavailable through TransientError")
	}
}
