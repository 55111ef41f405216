package checker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingProber tracks peak concurrency and labels keys prefixed "bad-" as
// permission failures.
type countingProber struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *countingProber) Probe(ctx context.Context, key string) ProbeResult {
	current := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.inFlight.Add(-1)
	if strings.HasPrefix(key, "bad-") {
		return ProbeResult{
			Key:        key,
			Outcome:    OutcomePermissionDenied,
			Detail:     "Invalid API Key (HTTP 403)",
			HTTPStatus: 403,
		}
	}
	return ProbeResult{Key: key, Outcome: OutcomeValid, HTTPStatus: 200}
}

func TestRunReturnsOneResultPerKey(t *testing.T) {
	prober := &countingProber{}
	keys := []string{"key-a", "bad-b", "key-c", "bad-d", "key-e"}
	results := Run(context.Background(), prober, keys, RunConfig{Workers: 3}, nil, nil)
	if len(results) != len(keys) {
		t.Fatalf("expected %d results, got %d", len(keys), len(results))
	}
	for i, result := range results {
		if result.Index != i {
			t.Fatalf("result %d out of order: index %d", i, result.Index)
		}
		if result.Key != keys[i] {
			t.Fatalf("result %d: expected key %s, got %s", i, keys[i], result.Key)
		}
	}
	valid := ValidKeys(results)
	if len(valid) != 3 {
		t.Fatalf("expected 3 valid keys, got %v", valid)
	}
	if valid[0] != "key-a" || valid[1] != "key-c" || valid[2] != "key-e" {
		t.Fatalf("valid keys out of input order: %v", valid)
	}
}

func TestRunHonorsWorkerLimit(t *testing.T) {
	prober := &countingProber{delay: 20 * time.Millisecond}
	keys := make([]string, 30)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	Run(context.Background(), prober, keys, RunConfig{Workers: 4}, nil, nil)
	if peak := prober.peak.Load(); peak > 4 {
		t.Fatalf("concurrency exceeded limit: peak %d", peak)
	}
}

func TestRunEmptyInput(t *testing.T) {
	results := Run(context.Background(), &countingProber{}, nil, RunConfig{}, nil, nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestRunReportsProgressAndFailures(t *testing.T) {
	reporter := &recordingReporter{}
	keys := []string{"key-a", "bad-b", "key-c"}
	Run(context.Background(), &countingProber{}, keys, RunConfig{Workers: 2}, reporter, nil)
	if got := reporter.progress.Load(); got != int32(len(keys)) {
		t.Fatalf("expected %d progress calls, got %d", len(keys), got)
	}
	if got := reporter.failures.Load(); got != 1 {
		t.Fatalf("expected 1 failure call, got %d", got)
	}
	if reporter.lastTotal.Load() != int32(len(keys)) {
		t.Fatalf("expected total %d, got %d", len(keys), reporter.lastTotal.Load())
	}
}

func TestRunBoundsEachProbeWithTimeout(t *testing.T) {
	runTimeout := 2 * time.Second
	prober := proberFunc(func(ctx context.Context, key string) ProbeResult {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Errorf("probe for %s has no deadline", key)
		} else if remaining := time.Until(deadline); remaining > runTimeout {
			t.Errorf("probe for %s: deadline %s out, want at most %s", key, remaining, runTimeout)
		}
		return ProbeResult{Key: key, Outcome: OutcomeValid}
	})
	Run(context.Background(), prober, []string{"key-a", "key-b"}, RunConfig{Workers: 2, Timeout: runTimeout}, nil, nil)
}

func TestRunStopsDispatchOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	prober := proberFunc(func(ctx context.Context, key string) ProbeResult {
		once.Do(cancel)
		return ProbeResult{Key: key, Outcome: OutcomeValid}
	})
	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	results := Run(ctx, prober, keys, RunConfig{Workers: 1}, nil, nil)
	if len(results) == 0 {
		t.Fatalf("in-flight probe should still produce a result")
	}
	if len(results) == len(keys) {
		t.Fatalf("cancellation should stop dispatching new keys")
	}
}

type proberFunc func(ctx context.Context, key string) ProbeResult

func (f proberFunc) Probe(ctx context.Context, key string) ProbeResult {
	return f(ctx, key)
}

type recordingReporter struct {
	progress  atomic.Int32
	failures  atomic.Int32
	lastTotal atomic.Int32
}

func (r *recordingReporter) OnProgress(completed, total int) {
	r.progress.Add(1)
	r.lastTotal.Store(int32(total))
}

func (r *recordingReporter) OnFailure(ProbeResult) {
	r.failures.Add(1)
}
