package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"keycheck/internal/checker"
	"keycheck/internal/gemini"
)

type RunManager struct {
	cfg        Config
	store      Store
	pacer      *Pacer
	obs        *Observability
	queue      chan queuedRun
	wg         sync.WaitGroup
	quickLimit *ipRateLimiter
}

type RunnerService interface {
	CreateRun(request RunRequest, principal Principal, source string) (RunMeta, error)
	CreateQuickCheck(request QuickCheckRequest, ipHash, uaHash string) (RunMeta, error)
}

type queuedRun struct {
	RunID       string
	Request     RunRequest
	Creator     Principal
	CreatorType string
	Source      string
}

func NewRunManager(cfg Config, store Store, pacer *Pacer, obs *Observability) *RunManager {
	maxParallel := cfg.Runs.MaxParallelRuns
	if maxParallel <= 0 {
		maxParallel = 2
	}
	manager := &RunManager{
		cfg:        cfg,
		store:      store,
		pacer:      pacer,
		obs:        obs,
		queue:      make(chan queuedRun, maxParallel*8),
		quickLimit: newIPRateLimiter(cfg.Limits.QuickCheckRPM),
	}
	for i := 0; i < maxParallel; i++ {
		manager.wg.Add(1)
		go func() {
			defer manager.wg.Done()
			manager.worker()
		}()
	}
	return manager
}

func (m *RunManager) Shutdown() {
	close(m.queue)
	m.wg.Wait()
}

func (m *RunManager) CreateRun(request RunRequest, principal Principal, source string) (RunMeta, error) {
	if strings.TrimSpace(request.Endpoint) == "" {
		request.Endpoint = m.cfg.Upstream.BaseURL
	}
	if strings.TrimSpace(request.Model) == "" {
		request.Model = m.cfg.Upstream.Model
	}
	request.Keys = trimKeys(request.Keys)
	if len(request.Keys) == 0 {
		return RunMeta{}, errors.New("at least one key is required")
	}
	if len(request.Keys) > m.cfg.Runs.MaxKeysPerRun {
		return RunMeta{}, fmt.Errorf("too many keys: %d exceeds limit %d", len(request.Keys), m.cfg.Runs.MaxKeysPerRun)
	}
	if request.Workers <= 0 {
		request.Workers = m.cfg.Runs.DefaultWorkers
	}
	if request.TimeoutSec <= 0 {
		request.TimeoutSec = m.cfg.Upstream.TimeoutSec
	}
	runID, err := randomID("run")
	if err != nil {
		return RunMeta{}, err
	}
	meta := RunMeta{
		RunID:       runID,
		Status:      "queued",
		Source:      source,
		CreatorType: "admin",
		CreatorSub:  principal.Subject,
		Request:     sanitizeRequest(request),
		CreatedAt:   nowRFC3339(),
	}
	if err := m.store.CreateRun(meta); err != nil {
		return RunMeta{}, err
	}
	_, _ = m.store.AppendRunEvent(runID, "queue", "run queued", map[string]any{
		"source":    source,
		"key_count": len(request.Keys),
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		RunID:     runID,
		ActorType: "admin",
		ActorSub:  principal.Subject,
		Action:    "run.create",
		Result:    "queued",
		Detail:    fmt.Sprintf("keys=%d model=%s", len(request.Keys), request.Model),
	})
	m.queue <- queuedRun{
		RunID:       runID,
		Request:     request,
		Creator:     principal,
		CreatorType: "admin",
		Source:      source,
	}
	return meta, nil
}

func (m *RunManager) CreateQuickCheck(request QuickCheckRequest, ipHash, uaHash string) (RunMeta, error) {
	if !m.quickLimit.Allow(ipHash) {
		m.obs.MarkRateLimited(context.Background(), "quick_check_rate_limit")
		_ = m.store.AppendAudit(AuditEvent{
			Timestamp: nowRFC3339(),
			ActorType: "user",
			Action:    "quick_check.reject",
			Result:    "rate_limited",
			IPHash:    ipHash,
			UAHash:    uaHash,
		})
		return RunMeta{}, errors.New("quick check rate limit reached")
	}
	keys := trimKeys(request.Keys)
	if len(keys) == 0 {
		return RunMeta{}, errors.New("at least one key is required")
	}
	if len(keys) > m.cfg.Runs.QuickCheckMaxKeys {
		return RunMeta{}, fmt.Errorf("quick check accepts at most %d keys", m.cfg.Runs.QuickCheckMaxKeys)
	}
	model := strings.TrimSpace(request.Model)
	if model == "" {
		model = m.cfg.Upstream.Model
	}
	runRequest := RunRequest{
		Endpoint:   m.cfg.Upstream.BaseURL,
		Model:      model,
		Keys:       keys,
		Workers:    minInt(len(keys), m.cfg.Runs.DefaultWorkers),
		TimeoutSec: m.cfg.Upstream.TimeoutSec,
	}
	runID, err := randomID("run")
	if err != nil {
		return RunMeta{}, err
	}
	meta := RunMeta{
		RunID:       runID,
		Status:      "queued",
		Source:      "user.quick_check",
		CreatorType: "user",
		Request:     sanitizeRequest(runRequest),
		CreatedAt:   nowRFC3339(),
	}
	if err := m.store.CreateRun(meta); err != nil {
		return RunMeta{}, err
	}
	_, _ = m.store.AppendRunEvent(runID, "queue", "quick check queued", map[string]any{
		"key_count": len(keys),
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		RunID:     runID,
		ActorType: "user",
		Action:    "quick_check.create",
		Result:    "queued",
		IPHash:    ipHash,
		UAHash:    uaHash,
		Detail:    fmt.Sprintf("keys=%d", len(keys)),
	})
	m.queue <- queuedRun{
		RunID:       runID,
		Request:     runRequest,
		CreatorType: "user",
		Source:      "user.quick_check",
	}
	return meta, nil
}

func (m *RunManager) worker() {
	for queued := range m.queue {
		m.executeRun(queued)
	}
}

func (m *RunManager) executeRun(queued queuedRun) {
	startedAt := nowRFC3339()
	_, _ = m.store.UpdateRun(queued.RunID, func(meta *RunMeta) {
		meta.Status = "running"
		meta.StartedAt = startedAt
	})
	_, _ = m.store.AppendRunEvent(queued.RunID, "start", "run started", nil)

	timeout := time.Duration(queued.Request.TimeoutSec) * time.Second
	client := gemini.NewClient(gemini.Config{
		BaseURL:    queued.Request.Endpoint,
		Timeout:    timeout,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(nil), Timeout: timeout},
	})
	prober := checker.NewProber(client, queued.Request.Model)
	runCfg := checker.RunConfig{
		Workers: queued.Request.Workers,
		Timeout: timeout,
	}
	reporter := &runEventReporter{store: m.store, runID: queued.RunID}

	ctx := context.Background()
	results := checker.Run(ctx, prober, queued.Request.Keys, runCfg, reporter, m.pacer)

	report := buildRunReport(queued.Request, results)
	status := "completed"
	runErr := ""
	if len(results) < len(queued.Request.Keys) {
		status = "failed"
		runErr = fmt.Sprintf("run interrupted: %d of %d keys checked", len(results), len(queued.Request.Keys))
	}
	for _, result := range results {
		m.obs.MarkProbe(ctx, result)
	}
	m.obs.MarkRun(ctx, status)

	_, _ = m.store.UpdateRun(queued.RunID, func(meta *RunMeta) {
		meta.Status = status
		meta.FinishedAt = nowRFC3339()
		meta.Report = &report
		meta.Error = runErr
	})
	_, _ = m.store.AppendRunEvent(queued.RunID, "completed", "run completed", map[string]any{
		"status": status,
		"valid":  report.Summary.Valid,
		"total":  report.Summary.Total,
	})
	_ = m.store.AppendAudit(AuditEvent{
		Timestamp: nowRFC3339(),
		RunID:     queued.RunID,
		ActorType: queued.CreatorType,
		ActorSub:  queued.Creator.Subject,
		Action:    "run.completed",
		Result:    status,
		Detail:    fmt.Sprintf("valid=%d total=%d", report.Summary.Valid, report.Summary.Total),
	})
}

func buildRunReport(request RunRequest, results []checker.ProbeResult) RunReport {
	outcomes := make([]KeyOutcome, 0, len(results))
	for _, result := range results {
		outcomes = append(outcomes, KeyOutcome{
			Fingerprint: hashString(result.Key),
			Outcome:     result.Outcome,
			Detail:      result.Detail,
			HTTPStatus:  result.HTTPStatus,
			DurationMS:  result.DurationMS,
		})
	}
	return RunReport{
		GeneratedAt: nowRFC3339(),
		Endpoint:    request.Endpoint,
		Model:       request.Model,
		Summary:     checker.Summarize(results),
		Results:     outcomes,
	}
}

// runEventReporter mirrors probe progress into the run event stream. Failure
// events carry fingerprints only, never the credential itself.
type runEventReporter struct {
	store Store
	runID string
}

func (r *runEventReporter) OnProgress(completed, total int) {
	if completed%25 != 0 && completed != total {
		return
	}
	_, _ = r.store.AppendRunEvent(r.runID, "progress", fmt.Sprintf("checked %d/%d", completed, total), map[string]any{
		"completed": completed,
		"total":     total,
	})
}

func (r *runEventReporter) OnFailure(result checker.ProbeResult) {
	_, _ = r.store.AppendRunEvent(r.runID, "probe_failure", result.Detail, map[string]any{
		"fingerprint": hashString(result.Key),
		"outcome":     string(result.Outcome),
		"http_status": result.HTTPStatus,
	})
}

func sanitizeRequest(request RunRequest) RunRecord {
	return RunRecord{
		Endpoint:   request.Endpoint,
		Model:      request.Model,
		KeyCount:   len(request.Keys),
		Workers:    request.Workers,
		TimeoutSec: request.TimeoutSec,
	}
}

func trimKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, key)
	}
	return out
}

func randomID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func hashString(input string) string {
	return sha256Hex(input)[:16]
}

type ipRateLimiter struct {
	mu      sync.Mutex
	rpm     int
	records map[string][]time.Time
}

func newIPRateLimiter(rpm int) *ipRateLimiter {
	if rpm <= 0 {
		rpm = 6
	}
	return &ipRateLimiter{
		rpm:     rpm,
		records: map[string][]time.Time{},
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.TrimSpace(key) == "" {
		key = "unknown"
	}
	now := time.Now()
	items := filterRecentTime(l.records[key], now, time.Minute)
	if len(items) >= l.rpm {
		l.records[key] = items
		return false
	}
	items = append(items, now)
	l.records[key] = items
	return true
}
