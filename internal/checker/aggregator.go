package checker

import (
	"sort"
	"sync"
)

// ResultSet accumulates ProbeResults from concurrent workers and restores
// input order when read back. Finalize is idempotent.
type ResultSet struct {
	mu        sync.Mutex
	results   []ProbeResult
	finalized []string
	done      bool
}

func NewResultSet() *ResultSet {
	return &ResultSet{}
}

func (s *ResultSet) Record(result ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.results = append(s.results, result)
}

// Results returns every recorded result sorted by input index.
func (s *ResultSet) Results() []ProbeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProbeResult, len(s.results))
	copy(out, s.results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out
}

// Finalize returns the valid keys in input order and freezes the set.
// Calling it again returns the same slice.
func (s *ResultSet) Finalize() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.finalized
	}
	sort.Slice(s.results, func(i, j int) bool {
		return s.results[i].Index < s.results[j].Index
	})
	valid := make([]string, 0, len(s.results))
	for _, result := range s.results {
		if result.Valid() {
			valid = append(valid, result.Key)
		}
	}
	s.finalized = valid
	s.done = true
	return s.finalized
}

// ValidKeys extracts the valid keys from an index-ordered result slice.
func ValidKeys(results []ProbeResult) []string {
	out := make([]string, 0, len(results))
	for _, result := range results {
		if result.Valid() {
			out = append(out, result.Key)
		}
	}
	return out
}
