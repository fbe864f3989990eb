package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/memberhub/internal/model"
	"github.com/hitoshi/memberhub/internal/token"
)

// --- モック定義 ---

type mockTokenVerifier struct {
	verifyFn func(tokenString string) (*token.SessionClaims, error)
}

func (m *mockTokenVerifier) Verify(tokenString string) (*token.SessionClaims, error) {
	if m.verifyFn != nil {
		return m.verifyFn(tokenString)
	}
	return nil, token.ErrTokenInvalid
}

type mockAuthMetrics struct {
	reasons []string
}

func (m *mockAuthMetrics) RecordTokenRejected(reason string) {
	m.reasons = append(m.reasons, reason)
}

var _ TokenVerifier = (*mockTokenVerifier)(nil)
var _ AuthMetrics = (*mockAuthMetrics)(nil)

func validClaims(userID string) *token.SessionClaims {
	claims := &token.SessionClaims{
		Email: "taro@example.com",
		Role:  string(model.RoleUser),
	}
	claims.Subject = userID
	return claims
}

// --- ExtractToken ---

func TestExtractToken_BearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	if got := ExtractToken(req); got != "header-token" {
		t.Errorf("token = %q, want %q", got, "header-token")
	}
}

func TestExtractToken_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})

	if got := ExtractToken(req); got != "cookie-token" {
		t.Errorf("token = %q, want %q", got, "cookie-token")
	}
}

func TestExtractToken_HeaderWinsOverCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})

	if got := ExtractToken(req); got != "header-token" {
		t.Errorf("token = %q, want %q (header should win)", got, "header-token")
	}
}

func TestExtractToken_NonBearerScheme_FallsBackToCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})

	if got := ExtractToken(req); got != "cookie-token" {
		t.Errorf("token = %q, want %q", got, "cookie-token")
	}
}

func TestExtractToken_NoCredentials_ReturnsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)

	if got := ExtractToken(req); got != "" {
		t.Errorf("token = %q, want empty string", got)
	}
}

// --- SessionMiddleware ---

func TestSessionMiddleware_ValidToken_InjectsIdentity(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(tokenString string) (*token.SessionClaims, error) {
			if tokenString == "valid-token" {
				return validClaims("user-123"), nil
			}
			return nil, token.ErrTokenInvalid
		},
	}
	metrics := &mockAuthMetrics{}
	mw := NewSessionMiddleware(verifier, metrics)

	var captured model.Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := IdentityFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = identity
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if captured.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", captured.UserID, "user-123")
	}
	if captured.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", captured.Role, model.RoleUser)
	}
	if len(metrics.reasons) != 0 {
		t.Errorf("no rejection should be recorded, got %v", metrics.reasons)
	}
}

func TestSessionMiddleware_MissingToken_Returns401(t *testing.T) {
	metrics := &mockAuthMetrics{}
	mw := NewSessionMiddleware(&mockTokenVerifier{}, metrics)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if len(metrics.reasons) != 1 || metrics.reasons[0] != "missing" {
		t.Errorf("reasons = %v, want [missing]", metrics.reasons)
	}
}

func TestSessionMiddleware_ExpiredToken_RecordsExpiredReason(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(tokenString string) (*token.SessionClaims, error) {
			return nil, token.ErrTokenExpired
		},
	}
	metrics := &mockAuthMetrics{}
	mw := NewSessionMiddleware(verifier, metrics)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if len(metrics.reasons) != 1 || metrics.reasons[0] != "expired" {
		t.Errorf("reasons = %v, want [expired]", metrics.reasons)
	}
}

// 不在・不正・期限切れのレスポンスは完全に同一でなければならない。
// ステータスコードだけでなくボディも比較する。
func TestSessionMiddleware_FailureResponses_AreIndistinguishable(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(tokenString string) (*token.SessionClaims, error) {
			switch tokenString {
			case "expired-token":
				return nil, token.ErrTokenExpired
			default:
				return nil, token.ErrTokenInvalid
			}
		},
	}
	mw := NewSessionMiddleware(verifier, &mockAuthMetrics{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	do := func(authorize string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		if authorize != "" {
			req.Header.Set("Authorization", "Bearer "+authorize)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Result().StatusCode, w.Body.String()
	}

	missingStatus, missingBody := do("")
	invalidStatus, invalidBody := do("garbage-token")
	expiredStatus, expiredBody := do("expired-token")

	if missingStatus != http.StatusUnauthorized {
		t.Errorf("missing status = %d, want 401", missingStatus)
	}
	if invalidStatus != missingStatus || expiredStatus != missingStatus {
		t.Errorf("statuses differ: missing=%d invalid=%d expired=%d",
			missingStatus, invalidStatus, expiredStatus)
	}
	if invalidBody != missingBody || expiredBody != missingBody {
		t.Errorf("bodies differ:\nmissing: %s\ninvalid: %s\nexpired: %s",
			missingBody, invalidBody, expiredBody)
	}
}

func TestIdentityFromContext_NotSet_ReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	if _, err := IdentityFromContext(req.Context()); err == nil {
		t.Error("expected error for missing identity, got nil")
	}
}
