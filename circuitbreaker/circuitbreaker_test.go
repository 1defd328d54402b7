package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := New(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Expected boom, got %v", err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("Expected open state, got %v", cb.State())
	}

	err := cb.Execute(ctx, func() error {
		t.Error("fn must not run while the circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := New(3, time.Minute)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return errBoom })
	cb.Execute(ctx, func() error { return errBoom })
	cb.Execute(ctx, func() error { return nil })
	cb.Execute(ctx, func() error { return errBoom })
	cb.Execute(ctx, func() error { return errBoom })

	if cb.State() == StateOpen {
		t.Error("Two failures after a success must not open a three-failure breaker")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := New(1, 10*time.Millisecond)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatalf("Expected open state, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	// A successful probe closes the circuit again.
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Expected probe to run, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected closed state after successful probe, got %v", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := New(1, 10*time.Millisecond)
	ctx := context.Background()

	cb.Execute(ctx, func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(ctx, func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected open state after failed probe, got %v", cb.State())
	}
}
