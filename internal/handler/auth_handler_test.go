package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Olamidayoo/harvest-helping-hands/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signUpFn         func(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	signOutFn        func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, *model.Profile, error)
	setRoleFn        func(ctx context.Context, userID string, role model.Role) error
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password, role)
	}
	return nil, nil, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) SignOut(ctx context.Context, sessionID string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, *model.Profile, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, userID)
	}
	return nil, nil, nil
}

func (m *mockAuthService) SetRole(ctx context.Context, userID string, role model.Role) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, userID, role)
	}
	return nil
}

// testAuthConfig はテスト用の認証ハンドラー設定。
func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 3600,
	}
}

// findSessionCookie はレスポンスからセッションCookieを探すヘルパー。
func findSessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

// --- POST /api/auth/signup テスト ---

func TestAuthHandler_SignUp_Success(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error) {
			if email != "donor@example.com" {
				t.Errorf("email = %q, want %q", email, "donor@example.com")
			}
			if role != model.RoleDonor {
				t.Errorf("role = %q, want %q", role, model.RoleDonor)
			}
			return &model.User{ID: "user-1", Email: email, Role: role},
				&model.Session{ID: "sess-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
				nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email": "donor@example.com", "password": "secret1", "role": "donor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	cookie := findSessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("session cookie should be set")
	}
	if cookie.Value != "sess-1" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "sess-1")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
}

func TestAuthHandler_SignUp_WithoutRole(t *testing.T) {
	svc := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error) {
			if role != "" {
				t.Errorf("role = %q, want empty", role)
			}
			return &model.User{ID: "user-1", Email: email},
				&model.Session{ID: "sess-1", UserID: "user-1"},
				nil
		},
	}

	h := NewAuthHandler(svc, testAuthConfig())

	body := `{"email": "donor@example.com", "password": "secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

func TestAuthHandler_SignUp_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"NotJSON", `not json`},
		{"MissingEmail", `{"password": "secret1"}`},
		{"BadEmail", `{"email": "not-an-email", "password": "secret1"}`},
		{"ShortPassword", `{"email": "a@example.com", "password": "abc"}`},
		{"BadRole", `{"email": "a@example.com", "password": "secret1", "role": "admin"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{
				signUpFn: func(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error) {
					t.Fatal("service should not be called")
					return nil, nil, nil
				},
			}, testAuthConfig())

			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			h.SignUp(w, req)

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestAuthHandler_SignUp_EmailTaken_Returns409(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		signUpFn: func(ctx context.Context, email, password string, role model.Role) (*model.User, *model.Session, error) {
			return nil, nil, model.NewEmailTakenError()
		},
	}, testAuthConfig())

	body := `{"email": "taken@example.com", "password": "secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SignUp(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "EMAIL_TAKEN" {
		t.Errorf("code = %q, want %q", errResp["code"], "EMAIL_TAKEN")
	}
}

// --- POST /api/auth/login テスト ---

func TestAuthHandler_SignIn_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return &model.User{ID: "user-1", Email: email, Role: model.RoleVolunteer},
				&model.Session{ID: "sess-login", UserID: "user-1"},
				nil
		},
	}, testAuthConfig())

	body := `{"email": "vol@example.com", "password": "secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cookie := findSessionCookie(t, resp)
	if cookie == nil || cookie.Value != "sess-login" {
		t.Error("session cookie should be set after login")
	}

	var got map[string]string
	json.NewDecoder(resp.Body).Decode(&got)
	if got["role"] != "volunteer" {
		t.Errorf("role = %q, want %q", got["role"], "volunteer")
	}
}

func TestAuthHandler_SignIn_InvalidCredentials_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}, testAuthConfig())

	body := `{"email": "vol@example.com", "password": "wrongpass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("code = %q, want %q", errResp["code"], "INVALID_CREDENTIALS")
	}
}

func TestAuthHandler_SignIn_MalformedEmail_Returns401(t *testing.T) {
	// 形式エラーでもメールの存在有無を推測させないため401を返す
	h := NewAuthHandler(&mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			t.Fatal("service should not be called")
			return nil, nil, nil
		},
	}, testAuthConfig())

	body := `{"email": "not-an-email", "password": "secret1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.SignIn(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- POST /api/auth/logout テスト ---

func TestAuthHandler_SignOut_ClearsCookie(t *testing.T) {
	signedOut := false
	h := NewAuthHandler(&mockAuthService{
		signOutFn: func(ctx context.Context, sessionID string) error {
			if sessionID != "sess-1" {
				t.Errorf("sessionID = %q, want %q", sessionID, "sess-1")
			}
			signedOut = true
			return nil
		},
	}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	h.SignOut(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !signedOut {
		t.Error("service SignOut should have been called")
	}

	cookie := findSessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("session cookie should be cleared")
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want negative", cookie.MaxAge)
	}
}

func TestAuthHandler_SignOut_WithoutCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		signOutFn: func(ctx context.Context, sessionID string) error {
			t.Fatal("service should not be called without cookie")
			return nil
		},
	}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()

	h.SignOut(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

// --- GET /api/auth/me テスト ---

func TestAuthHandler_Me_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		getCurrentUserFn: func(ctx context.Context, userID string) (*model.User, *model.Profile, error) {
			return &model.User{ID: userID, Email: "donor@example.com", Role: model.RoleDonor},
				&model.Profile{ID: userID, Username: "donor", IsAdmin: false},
				nil
		},
	}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var got currentUserResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Email != "donor@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "donor@example.com")
	}
	if got.Username != "donor" {
		t.Errorf("Username = %q, want %q", got.Username, "donor")
	}
	if got.IsAdmin {
		t.Error("IsAdmin should be false")
	}
}

func TestAuthHandler_Me_NoAuth_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- PUT /api/session/role テスト ---

func TestAuthHandler_SetRole_Success(t *testing.T) {
	var gotRole model.Role
	h := NewAuthHandler(&mockAuthService{
		setRoleFn: func(ctx context.Context, userID string, role model.Role) error {
			gotRole = role
			return nil
		},
	}, testAuthConfig())

	body := `{"role": "volunteer"}`
	req := httptest.NewRequest(http.MethodPut, "/api/session/role", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotRole != model.RoleVolunteer {
		t.Errorf("role = %q, want %q", gotRole, model.RoleVolunteer)
	}
}

func TestAuthHandler_SetRole_InvalidRole_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		setRoleFn: func(ctx context.Context, userID string, role model.Role) error {
			t.Fatal("service should not be called")
			return nil
		},
	}, testAuthConfig())

	body := `{"role": "superuser"}`
	req := httptest.NewRequest(http.MethodPut, "/api/session/role", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "INVALID_ROLE" {
		t.Errorf("code = %q, want %q", errResp["code"], "INVALID_ROLE")
	}
}
