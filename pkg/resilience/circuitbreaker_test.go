package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }

	if err := b.Call(context.Background(), fail); !errors.Is(err, boom) {
		t.Fatal(err)
	}
	if b.State() != StateClosed {
		t.Fatal("breaker tripped too early")
	}
	if err := b.Call(context.Background(), fail); !errors.Is(err, boom) {
		t.Fatal(err)
	}
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}
	if err := b.Call(context.Background(), fail); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("x") })
	if b.State() != StateOpen {
		t.Fatal("should be open")
	}

	now = now.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatal("should be half-open after timeout")
	}
	if err := b.Call(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if b.State() != StateClosed {
		t.Fatal("probe success should close the breaker")
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("x") })
	now = now.Add(2 * time.Minute)
	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("still down") })
	if b.State() != StateOpen {
		t.Fatal("failed probe should reopen")
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute})
	fail := func(context.Context) error { return errors.New("x") }
	ok := func(context.Context) error { return nil }

	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), ok)
	_ = b.Call(context.Background(), fail)
	if b.State() != StateClosed {
		t.Fatal("success should reset the failure count")
	}
}
