package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("test-secret")
	tok, err := v.Issue("user-1", "a@b.com", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	p, err := v.Parse(tok)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.UserID != "user-1" || p.Email != "a@b.com" {
		t.Errorf("principal = %+v", p)
	}
}

func TestParseRejectsOtherSecretAndExpired(t *testing.T) {
	other, _ := NewVerifier("other").Issue("user-1", "", time.Minute)
	if _, err := NewVerifier("test-secret").Parse(other); err == nil {
		t.Error("token signed with other secret should fail")
	}
	expired, _ := NewVerifier("test-secret").Issue("user-1", "", -time.Minute)
	if _, err := NewVerifier("test-secret").Parse(expired); err == nil {
		t.Error("expired token should fail")
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("test-secret")
	var got Principal
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	tok, _ := v.Issue("user-9", "", time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token: status = %d, want 204", rec.Code)
	}
	if got.UserID != "user-9" {
		t.Errorf("principal user = %q", got.UserID)
	}
}
