package checker

import "time"

type Outcome string

const (
	OutcomeValid            Outcome = "valid"
	OutcomePermissionDenied Outcome = "permission_denied"
	OutcomeQuotaExhausted   Outcome = "quota_exhausted"
	OutcomeInvalidArgument  Outcome = "invalid_argument"
	OutcomeTransportError   Outcome = "transport_error"
	OutcomeUnknown          Outcome = "unknown_error"
)

// ProbeResult is the classified outcome of checking one credential. Index is
// the credential's position in the input sequence; the aggregator uses it to
// restore input order.
type ProbeResult struct {
	Key        string  `json:"-"`
	Index      int     `json:"index"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
	HTTPStatus int     `json:"http_status,omitempty"`
	DurationMS int64   `json:"duration_ms"`
}

func (r ProbeResult) Valid() bool {
	return r.Outcome == OutcomeValid
}

// RunConfig bounds the scheduler: Workers caps concurrent probes and
// Timeout caps each probe's wall time. The model lives in the Prober.
type RunConfig struct {
	Workers int
	Timeout time.Duration
}

const (
	DefaultModel   = "gemini-2.0-flash-lite"
	DefaultWorkers = 10
	DefaultTimeout = 10 * time.Second
)

func (c RunConfig) withDefaults() RunConfig {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Summary aggregates per-outcome counts over a finished run.
type Summary struct {
	Total    int             `json:"total"`
	Valid    int             `json:"valid"`
	ByReason map[Outcome]int `json:"by_reason,omitempty"`
}

func Summarize(results []ProbeResult) Summary {
	summary := Summary{
		Total:    len(results),
		ByReason: map[Outcome]int{},
	}
	for _, result := range results {
		if result.Valid() {
			summary.Valid++
			continue
		}
		summary.ByReason[result.Outcome]++
	}
	if len(summary.ByReason) == 0 {
		summary.ByReason = nil
	}
	return summary
}
