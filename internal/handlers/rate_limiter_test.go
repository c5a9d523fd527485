package handlers

import (
	"testing"
	"time"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limiter := newSimpleRateLimiter(2, time.Minute, clock)

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatalf("first two requests must pass")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("third request inside the window must be rejected")
	}

	// Another client has its own budget.
	if !limiter.Allow("10.0.0.2") {
		t.Errorf("separate keys must not share a window")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Errorf("window rollover must reset the budget")
	}
}

func TestRateLimiterEmptyKey(t *testing.T) {
	limiter := newSimpleRateLimiter(1, time.Minute, nil)

	if !limiter.Allow("") {
		t.Fatalf("first anonymous request must pass")
	}
	if limiter.Allow("  ") {
		t.Errorf("blank keys must share the anonymous budget")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	if limiter := newSimpleRateLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatalf("non-positive limit must disable limiting")
	}
	if limiter := NewRequestRateLimiter(-1); limiter != nil {
		t.Fatalf("negative limit must disable limiting")
	}
}
