package server

import (
	"context"
	"testing"
	"time"
)

func TestPacerAllowsUpToLimit(t *testing.T) {
	pacer := NewPacer(3)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !pacer.tryAcquire(now) {
			t.Fatalf("acquire %d should succeed", i)
		}
	}
	if pacer.tryAcquire(now) {
		t.Fatalf("fourth acquire in the same window should fail")
	}
}

func TestPacerWindowSlides(t *testing.T) {
	pacer := NewPacer(1)
	now := time.Now()
	if !pacer.tryAcquire(now) {
		t.Fatalf("first acquire should succeed")
	}
	if pacer.tryAcquire(now.Add(30 * time.Second)) {
		t.Fatalf("acquire inside the window should fail")
	}
	if !pacer.tryAcquire(now.Add(61 * time.Second)) {
		t.Fatalf("acquire after the window should succeed")
	}
}

func TestPacerWaitHonorsContext(t *testing.T) {
	pacer := NewPacer(1)
	if err := pacer.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := pacer.Wait(ctx); err == nil {
		t.Fatalf("expected context deadline while window is full")
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(2)
	if !limiter.Allow("hash-a") || !limiter.Allow("hash-a") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow("hash-a") {
		t.Fatalf("third request in the window should be rejected")
	}
	if !limiter.Allow("hash-b") {
		t.Fatalf("other actors are unaffected")
	}
}
