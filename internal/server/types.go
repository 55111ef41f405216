package server

import (
	"time"

	"keycheck/internal/checker"
)

type Principal struct {
	Subject  string `json:"subject"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// RunRequest is the API input for a validation run. Keys travel only through
// this request; they are probed and discarded, never persisted.
type RunRequest struct {
	Endpoint   string   `json:"endpoint,omitempty"`
	Model      string   `json:"model,omitempty"`
	Keys       []string `json:"keys"`
	Workers    int      `json:"workers,omitempty"`
	TimeoutSec int      `json:"timeout_sec,omitempty"`
}

type QuickCheckRequest struct {
	Keys  []string `json:"keys"`
	Model string   `json:"model,omitempty"`
}

// RunRecord is the persisted view of a RunRequest with credentials stripped.
type RunRecord struct {
	Endpoint   string `json:"endpoint"`
	Model      string `json:"model"`
	KeyCount   int    `json:"key_count"`
	Workers    int    `json:"workers"`
	TimeoutSec int    `json:"timeout_sec"`
}

// KeyOutcome is one credential's classified result, identified only by a
// SHA-256 fingerprint fragment.
type KeyOutcome struct {
	Fingerprint string          `json:"fingerprint"`
	Outcome     checker.Outcome `json:"outcome"`
	Detail      string          `json:"detail,omitempty"`
	HTTPStatus  int             `json:"http_status,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
}

type RunReport struct {
	GeneratedAt string          `json:"generated_at"`
	Endpoint    string          `json:"endpoint"`
	Model       string          `json:"model"`
	Summary     checker.Summary `json:"summary"`
	Results     []KeyOutcome    `json:"results"`
}

type RunMeta struct {
	RunID       string     `json:"run_id"`
	Status      string     `json:"status"`
	CreatorType string     `json:"creator_type"`
	CreatorSub  string     `json:"creator_sub,omitempty"`
	Source      string     `json:"source"`
	Request     RunRecord  `json:"request"`
	StartedAt   string     `json:"started_at,omitempty"`
	FinishedAt  string     `json:"finished_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
	Error       string     `json:"error,omitempty"`
	Report      *RunReport `json:"report,omitempty"`
}

type AuditEvent struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	ActorType string `json:"actor_type"`
	ActorSub  string `json:"actor_sub,omitempty"`
	Action    string `json:"action"`
	Result    string `json:"result"`
	IPHash    string `json:"ip_hash,omitempty"`
	UAHash    string `json:"ua_hash,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type RunEvent struct {
	Seq       int64          `json:"seq"`
	Timestamp string         `json:"timestamp"`
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

type MetricsOverview struct {
	GeneratedAt     string `json:"generated_at"`
	TotalRuns       int    `json:"total_runs"`
	RunningRuns     int    `json:"running_runs"`
	CompletedRuns   int    `json:"completed_runs"`
	FailedRuns      int    `json:"failed_runs"`
	KeysChecked     int    `json:"keys_checked"`
	ValidKeys       int    `json:"valid_keys"`
	AverageDuration int64  `json:"average_duration_ms"`
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
