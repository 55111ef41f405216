package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeUpstream accepts keys prefixed "good" and rejects everything else with
// the canonical 403 envelope.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(key, "good") {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi"}]}}],"usageMetadata":{"totalTokenCount":2}}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid.","status":"PERMISSION_DENIED"}}`))
	}))
}

func TestRunMixedKeys(t *testing.T) {
	upstream := fakeUpstream(t)
	defer upstream.Close()

	stdin := strings.NewReader("good-key-one\nbad-key-two\ngood-key-three\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-base-url", upstream.URL, "-workers", "2", "-timeout", "5s"},
		stdin, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr: %s", code, stderr.String())
	}

	wantOut := "good-key-one\ngood-key-three\n"
	if stdout.String() != wantOut {
		t.Fatalf("stdout = %q, want %q", stdout.String(), wantOut)
	}
	diag := stderr.String()
	if !strings.Contains(diag, "checking 3 keys") {
		t.Fatalf("stderr missing banner: %s", diag)
	}
	if !strings.Contains(diag, "bad-key-") || !strings.Contains(diag, "HTTP 403") {
		t.Fatalf("stderr missing failure diagnostic: %s", diag)
	}
	if !strings.Contains(diag, "2 of 3 keys valid") {
		t.Fatalf("stderr missing summary: %s", diag)
	}
	if strings.Contains(stdout.String(), "bad-key-two") {
		t.Fatalf("invalid key leaked to stdout: %s", stdout.String())
	}
}

func TestRunJSONArrayOutputFile(t *testing.T) {
	upstream := fakeUpstream(t)
	defer upstream.Close()

	outPath := filepath.Join(t.TempDir(), "valid.json")
	stdin := strings.NewReader("good-key\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-base-url", upstream.URL, "-format", "json_array", "-output", outPath},
		stdin, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should be empty when -output is set, got %q", stdout.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !strings.Contains(string(data), `"good-key"`) {
		t.Fatalf("output file = %s, want JSON array with good-key", data)
	}
	if !strings.Contains(stderr.String(), "results saved to "+outPath) {
		t.Fatalf("stderr missing save notice: %s", stderr.String())
	}
}

func TestRunEmptyInputExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, strings.NewReader("\n\n"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout = %q, want empty", stdout.String())
	}
	if !strings.Contains(stderr.String(), "no keys found in input") {
		t.Fatalf("stderr = %q, want empty-input notice", stderr.String())
	}
}

func TestRunConfigErrorsExitTwo(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"-format", "xml"}},
		{"empty model", []string{"-model", "  "}},
		{"zero workers", []string{"-workers", "0"}},
		{"missing input file", []string{"-input", filepath.Join(t.TempDir(), "absent.txt")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, strings.NewReader(""), &stdout, &stderr)
			if code != 2 {
				t.Fatalf("exit code = %d, want 2\nstderr: %s", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), "error:") {
				t.Fatalf("stderr = %q, want error message", stderr.String())
			}
		})
	}
}
