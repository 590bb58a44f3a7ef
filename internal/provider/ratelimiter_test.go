package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Name(t *testing.T) {
	rl := NewRateLimiter("rpc", 10)
	if rl.Name() != "rpc" {
		t.Errorf("Name() = %q, want %q", rl.Name(), "rpc")
	}
	if rl.Unlimited() {
		t.Error("limiter with rps 10 should not be unlimited")
	}
}

func TestRateLimiter_WaitAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter("ipfs", 100)

	for i := 0; i < 5; i++ {
		if _, err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error on iteration %d: %v", i, err)
		}
	}
}

func TestRateLimiter_WaitReportsThrottle(t *testing.T) {
	rl := NewRateLimiter("rpc", 20)

	if _, err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}
	waited, err := rl.Wait(context.Background())
	if err != nil {
		t.Fatalf("second Wait() error: %v", err)
	}
	// 20 rps with burst 1 holds the second call for roughly 50ms.
	if waited < 20*time.Millisecond {
		t.Errorf("waited = %v, want the second call to be held back", waited)
	}
}

func TestRateLimiter_ZeroRPSDisablesPacing(t *testing.T) {
	rl := NewRateLimiter("ipfs", 0)
	if !rl.Unlimited() {
		t.Fatal("rps 0 should disable pacing")
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		waited, err := rl.Wait(context.Background())
		if err != nil {
			t.Fatalf("Wait() error on iteration %d: %v", i, err)
		}
		if waited != 0 {
			t.Fatalf("waited = %v on iteration %d, want 0", waited, i)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("100 unlimited waits took %v", elapsed)
	}
}

func TestRateLimiter_ZeroRPSHonorsCancelledContext(t *testing.T) {
	rl := NewRateLimiter("ipfs", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rl.Wait(ctx); err == nil {
		t.Fatal("Wait() with cancelled context should return error")
	}
}

func TestRateLimiter_WaitContextTimeout(t *testing.T) {
	rl := NewRateLimiter("rpc", 1)

	if _, err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := rl.Wait(ctx); err == nil {
		t.Fatal("Wait() with expired timeout should return error")
	}
}
