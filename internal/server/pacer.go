package server

import (
	"context"
	"sync"
	"time"
)

// Pacer caps outbound probe requests to the upstream endpoint across all
// concurrent runs using a sliding one-minute window.
type Pacer struct {
	mu      sync.Mutex
	rpm     int
	records []time.Time
}

func NewPacer(rpm int) *Pacer {
	if rpm <= 0 {
		rpm = 300
	}
	return &Pacer{rpm: rpm}
}

// Wait blocks until a slot opens in the current window, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	for {
		if p.tryAcquire(time.Now()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (p *Pacer) tryAcquire(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = filterRecentTime(p.records, now, time.Minute)
	if len(p.records) >= p.rpm {
		return false
	}
	p.records = append(p.records, now)
	return true
}

func filterRecentTime(values []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	out := values[:0]
	for _, v := range values {
		if v.After(cutoff) {
			out = append(out, v)
		}
	}
	return out
}
