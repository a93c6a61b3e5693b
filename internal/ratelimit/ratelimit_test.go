package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_Burst(t *testing.T) {
	l := New(1, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("burst of 2 not honoured")
	}
	if l.Allow() {
		t.Error("third immediate event allowed at 1/s")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() returned nil with an exhausted bucket")
	} else if errors.Is(err, context.Canceled) {
		t.Errorf("Wait() err = %v", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("event %d throttled with unlimited rate", i)
		}
	}
}
