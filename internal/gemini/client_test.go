package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateContentSuccess(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Hi"}]}, "finishReason": "MAX_TOKENS"}],
			"usageMetadata": {"promptTokenCount": 1, "candidatesTokenCount": 1, "totalTokenCount": 2}
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	resp, raw, err := client.GenerateContent(context.Background(), "test-key", "gemini-2.0-flash-lite", GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "Hi"}}}},
	})
	if err != nil {
		t.Fatalf("GenerateContent error: %v", err)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash-lite:generateContent" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if raw.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", raw.StatusCode)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].Content.Parts[0].Text != "Hi" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.UsageMetadata.TotalTokenCount != 2 {
		t.Fatalf("unexpected usage: %+v", resp.UsageMetadata)
	}
}

func TestGenerateContentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid. Please pass a valid API key.","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, raw, err := client.GenerateContent(context.Background(), "bad-key", "gemini-2.0-flash-lite", GenerateContentRequest{})
	if err == nil {
		t.Fatalf("expected error for 403")
	}
	if raw == nil || raw.StatusCode != http.StatusForbidden {
		t.Fatalf("expected raw 403 response, got %+v", raw)
	}
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Envelope.Error.Status != "PERMISSION_DENIED" {
		t.Fatalf("unexpected envelope status: %s", apiErr.Envelope.Error.Status)
	}
	if !strings.Contains(apiErr.Error(), "API key not valid") {
		t.Fatalf("unexpected error string: %s", apiErr.Error())
	}
}

func TestGenerateContentNonEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, raw, err := client.GenerateContent(context.Background(), "key", "gemini-2.0-flash-lite", GenerateContentRequest{})
	if err == nil {
		t.Fatalf("expected error for 502")
	}
	if _, ok := IsAPIError(err); ok {
		t.Fatalf("HTML body must not decode into an API error")
	}
	if raw.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected raw 502, got %d", raw.StatusCode)
	}
}

func TestParseAPIErrorEnvelopeRejectsForeignJSON(t *testing.T) {
	if _, ok := ParseAPIErrorEnvelope([]byte(`{"message":"nope"}`)); ok {
		t.Fatalf("envelope without error object must not parse")
	}
	if _, ok := ParseAPIErrorEnvelope([]byte("not json")); ok {
		t.Fatalf("non-JSON body must not parse")
	}
}
