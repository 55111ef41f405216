package checker

import (
	"fmt"
	"io"
	"strings"
)

// Reporter receives progress and failure diagnostics as results arrive. It
// runs on the collector goroutine; implementations must be cheap and must
// never fail the run.
type Reporter interface {
	OnProgress(completed, total int)
	OnFailure(result ProbeResult)
}

type NopReporter struct{}

func (NopReporter) OnProgress(int, int)   {}
func (NopReporter) OnFailure(ProbeResult) {}

// StreamReporter writes human-readable lines to a side channel, normally
// stderr, keeping the result stream machine-parseable. Write errors are
// swallowed.
type StreamReporter struct {
	Out io.Writer
}

func NewStreamReporter(out io.Writer) *StreamReporter {
	return &StreamReporter{Out: out}
}

func (r *StreamReporter) OnProgress(completed, total int) {
	if r == nil || r.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(r.Out, "\rchecked %d/%d", completed, total)
	if completed == total {
		_, _ = fmt.Fprintln(r.Out)
	}
}

func (r *StreamReporter) OnFailure(result ProbeResult) {
	if r == nil || r.Out == nil {
		return
	}
	line := fmt.Sprintf("\n  -> key [%s] failed: %s", KeyFragment(result.Key), result.Outcome)
	if result.Detail != "" {
		line += ": " + result.Detail
	}
	if result.HTTPStatus > 0 && !strings.Contains(line, fmt.Sprintf("HTTP %d", result.HTTPStatus)) {
		line += fmt.Sprintf(" (HTTP %d)", result.HTTPStatus)
	}
	_, _ = fmt.Fprint(r.Out, line)
}

// KeyFragment returns a short non-reversible prefix of a credential for
// diagnostics, never the full secret.
func KeyFragment(key string) string {
	const n = 8
	r := []rune(key)
	if len(r) <= n {
		return string(r) + "..."
	}
	return string(r[:n]) + "..."
}
