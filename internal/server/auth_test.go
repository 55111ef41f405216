package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestAuth(t *testing.T) (*Auth, *MemoryFileStore) {
	t.Helper()
	store, err := NewMemoryFileStore("")
	if err != nil {
		t.Fatalf("NewMemoryFileStore: %v", err)
	}
	auth := NewAuth(nil, store, Config{
		Security: SecurityConfig{AdminToken: "secret-token"},
	})
	return auth, store
}

func TestLoginFailureRecordsAudit(t *testing.T) {
	auth, store := newTestAuth(t)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	request.RemoteAddr = "192.0.2.1:5000"
	request.Header.Set("User-Agent", "test-agent")
	recorder := httptest.NewRecorder()

	auth.HandleLogin(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
	}

	events := store.ListAudit(10)
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(events))
	}
	event := events[0]
	if event.Action != "auth.login" || event.Result != "invalid_credentials" {
		t.Fatalf("audit event = %q/%q, want auth.login/invalid_credentials", event.Action, event.Result)
	}
	if event.Detail != "alice" {
		t.Fatalf("audit detail = %q, want alice", event.Detail)
	}
	if event.IPHash == "" || event.UAHash == "" {
		t.Fatalf("audit event missing actor hashes: %+v", event)
	}
	if event.Timestamp == "" {
		t.Fatalf("audit event missing timestamp")
	}
}

func TestLogoutRecordsAudit(t *testing.T) {
	auth, store := newTestAuth(t)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	request.RemoteAddr = "192.0.2.1:5000"
	recorder := httptest.NewRecorder()

	auth.HandleLogout(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}

	events := store.ListAudit(10)
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(events))
	}
	if events[0].Action != "auth.logout" || events[0].Result != "ok" {
		t.Fatalf("audit event = %q/%q, want auth.logout/ok", events[0].Action, events[0].Result)
	}
}

func TestLoginRejectsMissingFields(t *testing.T) {
	auth, store := newTestAuth(t)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"","password":""}`))
	recorder := httptest.NewRecorder()

	auth.HandleLogin(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
	if events := store.ListAudit(10); len(events) != 0 {
		t.Fatalf("malformed login should not audit, got %d events", len(events))
	}
}
