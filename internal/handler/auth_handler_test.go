package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/memberhub/internal/middleware"
	"github.com/hitoshi/memberhub/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn         func(ctx context.Context, email, name, password string) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (*model.User, string, error)
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, email, name, password string) (*model.User, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, name, password)
	}
	return nil, model.NewValidationError("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, "", model.NewInvalidCredentialsError()
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 604800,
	}
}

func sampleUser() *model.User {
	return &model.User{
		ID:    "user-123",
		Email: "taro@example.com",
		Name:  "山田太郎",
		Role:  model.RoleUser,
	}
}

// --- Signup ---

func TestAuthHandler_Signup_Returns201(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, email, name, password string) (*model.User, error) {
			return sampleUser(), nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	body := `{"email":"taro@example.com","name":"山田太郎","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.ID != "user-123" || got.Role != string(model.RoleUser) {
		t.Errorf("response = %+v, want user-123/user", got)
	}
}

func TestAuthHandler_Signup_DuplicateEmail_Returns409(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, email, name, password string) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	body := `{"email":"taro@example.com","name":"山田太郎","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}

func TestAuthHandler_Signup_MalformedBody_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- Login ---

func TestAuthHandler_Login_SetsSessionCookieAndReturnsToken(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return sampleUser(), "issued-token", nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	body := `{"email":"taro@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if sessionCookie.Value != "issued-token" {
		t.Errorf("cookie value = %q, want %q", sessionCookie.Value, "issued-token")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if sessionCookie.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be SameSite=Lax")
	}
	if sessionCookie.MaxAge != 604800 {
		t.Errorf("cookie MaxAge = %d, want 604800", sessionCookie.MaxAge)
	}

	var got loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Token != "issued-token" {
		t.Errorf("token = %q, want %q", got.Token, "issued-token")
	}
	if got.User.ID != "user-123" {
		t.Errorf("user.ID = %q, want %q", got.User.ID, "user-123")
	}
}

func TestAuthHandler_Login_InvalidCredentials_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	body := `{"email":"taro@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if len(resp.Cookies()) != 0 {
		t.Error("no cookie should be set on failed login")
	}
}

// --- Logout ---

func TestAuthHandler_Logout_ClearsCookies(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cleared := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	if !cleared[middleware.SessionCookieName] {
		t.Error("session cookie should be cleared")
	}
	if !cleared[middleware.CSRFCookieName] {
		t.Error("CSRF cookie should be cleared")
	}
}

// --- Me ---

func TestAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return sampleUser(), nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := middleware.ContextWithIdentity(req.Context(), model.Identity{
		UserID: "user-123",
		Role:   model.RoleUser,
	})
	w := httptest.NewRecorder()
	h.Me(w, req.WithContext(ctx))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Email != "taro@example.com" {
		t.Errorf("email = %q, want %q", got.Email, "taro@example.com")
	}
}

func TestAuthHandler_Me_NoIdentity_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
