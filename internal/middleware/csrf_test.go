package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- モック定義 ---

type mockCSRFMetrics struct {
	reasons []string
}

func (m *mockCSRFMetrics) RecordCSRFRejected(reason string) {
	m.reasons = append(m.reasons, reason)
}

var _ CSRFMetrics = (*mockCSRFMetrics)(nil)

func testCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookieSecure: false,
		CookieMaxAge: 86400,
	}
}

func passThroughHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

// --- GenerateCSRFToken ---

func TestGenerateCSRFToken_HashMatchesRawToken(t *testing.T) {
	raw, cookieHash, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}
	if raw == "" || cookieHash == "" {
		t.Fatal("raw and hash must not be empty")
	}
	if raw == cookieHash {
		t.Error("cookie value must be a hash, not the raw token")
	}
	if hashCSRFToken(raw) != cookieHash {
		t.Error("cookieHash must equal hash(raw)")
	}
}

func TestGenerateCSRFToken_TokensAreUnique(t *testing.T) {
	raw1, _, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}
	raw2, _, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}
	if raw1 == raw2 {
		t.Error("two generated tokens must not be equal")
	}
}

// --- CSRFMiddleware ---

func TestCSRFMiddleware_SafeMethods_SkipValidation(t *testing.T) {
	metrics := &mockCSRFMetrics{}
	mw := NewCSRFMiddleware(testCSRFConfig(), metrics)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		called := false
		handler := mw(passThroughHandler(&called))

		// CookieもヘッダーもないがGET系は通過する
		req := httptest.NewRequest(method, "/api/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if !called {
			t.Errorf("%s: handler should be called without CSRF credentials", method)
		}
	}
	if len(metrics.reasons) != 0 {
		t.Errorf("no rejection should be recorded, got %v", metrics.reasons)
	}
}

func TestCSRFMiddleware_MissingCookie_Returns403(t *testing.T) {
	metrics := &mockCSRFMetrics{}
	mw := NewCSRFMiddleware(testCSRFConfig(), metrics)

	called := false
	handler := mw(passThroughHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	req.Header.Set(CSRFHeaderName, "some-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if len(metrics.reasons) != 1 || metrics.reasons[0] != "missing_cookie" {
		t.Errorf("reasons = %v, want [missing_cookie]", metrics.reasons)
	}
}

func TestCSRFMiddleware_MissingHeader_Returns403(t *testing.T) {
	metrics := &mockCSRFMetrics{}
	mw := NewCSRFMiddleware(testCSRFConfig(), metrics)

	_, cookieHash, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}

	called := false
	handler := mw(passThroughHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookieHash})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if len(metrics.reasons) != 1 || metrics.reasons[0] != "missing_header" {
		t.Errorf("reasons = %v, want [missing_header]", metrics.reasons)
	}
}

func TestCSRFMiddleware_TokenMismatch_Returns403(t *testing.T) {
	metrics := &mockCSRFMetrics{}
	mw := NewCSRFMiddleware(testCSRFConfig(), metrics)

	_, cookieHash, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}
	otherRaw, _, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}

	called := false
	handler := mw(passThroughHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookieHash})
	req.Header.Set(CSRFHeaderName, otherRaw)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if len(metrics.reasons) != 1 || metrics.reasons[0] != "mismatch" {
		t.Errorf("reasons = %v, want [mismatch]", metrics.reasons)
	}
}

func TestCSRFMiddleware_RawHashInCookie_Rejected(t *testing.T) {
	// Cookie値（ハッシュ）をそのままヘッダーに入れても一致しない。
	// ハッシュのさらにハッシュが比較されるため、Cookie窃取だけでは通過できない。
	metrics := &mockCSRFMetrics{}
	mw := NewCSRFMiddleware(testCSRFConfig(), metrics)

	_, cookieHash, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}

	called := false
	handler := mw(passThroughHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookieHash})
	req.Header.Set(CSRFHeaderName, cookieHash)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_ValidTokenPair_Passes(t *testing.T) {
	metrics := &mockCSRFMetrics{}
	mw := NewCSRFMiddleware(testCSRFConfig(), metrics)

	raw, cookieHash, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken failed: %v", err)
	}

	called := false
	handler := mw(passThroughHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookieHash})
	req.Header.Set(CSRFHeaderName, raw)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should be called with a valid token pair")
	}
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if len(metrics.reasons) != 0 {
		t.Errorf("no rejection should be recorded, got %v", metrics.reasons)
	}
}

func TestCSRFMiddleware_Disabled_SkipsValidation(t *testing.T) {
	config := testCSRFConfig()
	config.Disabled = true
	mw := NewCSRFMiddleware(config, &mockCSRFMetrics{})

	called := false
	handler := mw(passThroughHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should be called when CSRF validation is disabled")
	}
}

// --- CSRFTokenHandler ---

func TestCSRFTokenHandler_IssuesTokenAndHashCookie(t *testing.T) {
	h := NewCSRFTokenHandler(testCSRFConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Token == "" {
		t.Fatal("token must not be empty")
	}

	var csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			csrfCookie = c
		}
	}
	if csrfCookie == nil {
		t.Fatal("CSRF cookie not set")
	}
	if !csrfCookie.HttpOnly {
		t.Error("CSRF cookie must be HttpOnly")
	}
	if csrfCookie.SameSite != http.SameSiteStrictMode {
		t.Error("CSRF cookie must be SameSite=Strict")
	}
	if csrfCookie.Value == body.Token {
		t.Error("cookie must hold the hash, not the raw token")
	}
	if csrfCookie.Value != hashCSRFToken(body.Token) {
		t.Error("cookie value must equal hash of the issued token")
	}
	if csrfCookie.MaxAge != 86400 {
		t.Errorf("cookie MaxAge = %d, want 86400", csrfCookie.MaxAge)
	}
}

func TestCSRFTokenHandler_EachCallIssuesFreshToken(t *testing.T) {
	h := NewCSRFTokenHandler(testCSRFConfig())

	issue := func() string {
		req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		return body.Token
	}

	if issue() == issue() {
		t.Error("consecutive calls must issue different tokens")
	}
}
