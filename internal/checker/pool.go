package checker

import (
	"context"
	"sync"
)

// Limiter gates outbound probes. Wait blocks until the caller may issue the
// next request or the context is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Run probes every key with at most cfg.Workers concurrent probes, each
// bounded by cfg.Timeout, and returns one ProbeResult per dispatched key,
// ordered by input index.
//
// A failed probe never affects the others. Cancelling ctx stops dispatching
// new keys; probes already in flight run to completion, so the returned
// slice may be shorter than keys only when ctx was cancelled.
func Run(ctx context.Context, prober Prober, keys []string, cfg RunConfig, reporter Reporter, limiter Limiter) []ProbeResult {
	cfg = cfg.withDefaults()
	if reporter == nil {
		reporter = NopReporter{}
	}
	total := len(keys)
	if total == 0 {
		return []ProbeResult{}
	}
	workers := cfg.Workers
	if workers > total {
		workers = total
	}

	type job struct {
		index int
		key   string
	}
	jobs := make(chan job)
	results := make(chan ProbeResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						results <- ProbeResult{
							Key:     item.key,
							Index:   item.index,
							Outcome: OutcomeTransportError,
							Detail:  err.Error(),
						}
						continue
					}
				}
				probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				result := prober.Probe(probeCtx, item.key)
				cancel()
				result.Index = item.index
				results <- result
			}
		}()
	}

	go func() {
		defer close(jobs)
		for index, key := range keys {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: index, key: key}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	set := NewResultSet()
	completed := 0
	for result := range results {
		set.Record(result)
		completed++
		if !result.Valid() {
			reporter.OnFailure(result)
		}
		reporter.OnProgress(completed, total)
	}
	return set.Results()
}
