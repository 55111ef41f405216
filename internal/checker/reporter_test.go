package checker

import (
	"bytes"
	"strings"
	"testing"
)

func TestKeyFragment(t *testing.T) {
	if got := KeyFragment("AIzaSyExampleExample"); got != "AIzaSyEx..." {
		t.Fatalf("unexpected fragment: %q", got)
	}
	if got := KeyFragment("short"); got != "short..." {
		t.Fatalf("short keys keep their full text: %q", got)
	}
}

func TestStreamReporterFailureLine(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewStreamReporter(&buf)
	reporter.OnFailure(ProbeResult{
		Key:     "AIzaSyExampleExample",
		Outcome: OutcomePermissionDenied,
		Detail:  "Invalid API Key (HTTP 403)",
	})
	line := buf.String()
	if !strings.Contains(line, "key [AIzaSyEx...] failed") {
		t.Fatalf("expected key fragment in line: %q", line)
	}
	if strings.Contains(line, "AIzaSyExampleExample") {
		t.Fatalf("full credential leaked to diagnostics: %q", line)
	}
	if !strings.Contains(line, "permission_denied: Invalid API Key (HTTP 403)") {
		t.Fatalf("expected outcome and detail in line: %q", line)
	}
	if strings.Count(line, "HTTP 403") != 1 {
		t.Fatalf("status code must not repeat when the detail carries it: %q", line)
	}
}

func TestStreamReporterFailureLineCarriesHTTPStatus(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewStreamReporter(&buf)
	reporter.OnFailure(ProbeResult{
		Key:        "AIzaSyExampleExample",
		Outcome:    OutcomeQuotaExhausted,
		Detail:     "Quota limit may have been reached",
		HTTPStatus: 429,
	})
	line := buf.String()
	if !strings.Contains(line, "quota_exhausted: Quota limit may have been reached (HTTP 429)") {
		t.Fatalf("expected status code in line: %q", line)
	}

	buf.Reset()
	reporter.OnFailure(ProbeResult{
		Key:        "AIzaSyExampleExample",
		Outcome:    OutcomeInvalidArgument,
		Detail:     `Check if model name "gemini-2.0-flash-lite" is correct`,
		HTTPStatus: 400,
	})
	if !strings.Contains(buf.String(), "(HTTP 400)") {
		t.Fatalf("expected status code in line: %q", buf.String())
	}

	buf.Reset()
	reporter.OnFailure(ProbeResult{
		Key:     "AIzaSyExampleExample",
		Outcome: OutcomeTransportError,
		Detail:  "dial tcp: connection refused",
	})
	if strings.Contains(buf.String(), "HTTP") {
		t.Fatalf("transport failures have no status code to report: %q", buf.String())
	}
}

func TestStreamReporterProgress(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewStreamReporter(&buf)
	reporter.OnProgress(1, 2)
	reporter.OnProgress(2, 2)
	out := buf.String()
	if !strings.Contains(out, "checked 1/2") || !strings.Contains(out, "checked 2/2") {
		t.Fatalf("unexpected progress output: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("final progress line should end with newline: %q", out)
	}
}
