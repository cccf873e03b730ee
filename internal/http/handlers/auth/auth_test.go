package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"student-records-api/internal/auth"
	"student-records-api/internal/config"
	authhandler "student-records-api/internal/http/handlers/auth"
	"student-records-api/internal/http/middleware"
	"student-records-api/internal/storage/sqlite"
)

// newTestServer wires the auth routes exactly as main.go does, backed
// by a freshly seeded database (admin / admin123).
func newTestServer(t *testing.T) (*http.ServeMux, *auth.Manager) {
	t.Helper()

	store, err := sqlite.New(&config.Config{
		StoragePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens := auth.New("test-secret", time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", authhandler.Login(store, tokens))
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(tokens, authhandler.Me()))
	mux.HandleFunc("POST /api/auth/change-password", middleware.RequireAuth(tokens, authhandler.ChangePassword(store)))

	return mux, tokens
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, mux *http.ServeMux, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	return doJSON(t, mux, http.MethodPost, "/api/auth/login", string(body), "")
}

func TestLogin(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := login(t, mux, "admin", "admin123")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message string         `json:"message"`
		Token   string         `json:"token"`
		User    map[string]any `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Errorf("expected a token in the response")
	}
	if resp.User["username"] != "admin" {
		t.Errorf("user.username = %v, want admin", resp.User["username"])
	}
	// The bcrypt hash must never appear in a response.
	if _, ok := resp.User["password"]; ok {
		t.Errorf("response leaks the password field")
	}
}

func TestLoginMissingFields(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := login(t, mux, "admin", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want 400", rec.Code)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	mux, _ := newTestServer(t)

	wrongPassword := login(t, mux, "admin", "wrong-password")
	unknownUser := login(t, mux, "no-such-user", "whatever")

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Errorf("wrong-password and unknown-user responses differ:\n%s\n%s",
			wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestMe(t *testing.T) {
	mux, _ := newTestServer(t)

	var loginResp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(login(t, mux, "admin", "admin123").Body.Bytes(), &loginResp)

	rec := doJSON(t, mux, http.MethodGet, "/api/auth/me", "", loginResp.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.Username != "admin" || resp.User.Role != "admin" {
		t.Errorf("claims = %+v, want admin/admin", resp.User)
	}

	if rec := doJSON(t, mux, http.MethodGet, "/api/auth/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /me status = %d, want 401", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	mux, _ := newTestServer(t)

	var loginResp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(login(t, mux, "admin", "admin123").Body.Bytes(), &loginResp)
	token := loginResp.Token

	t.Run("new password too short", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/auth/change-password",
			`{"currentPassword":"admin123","newPassword":"five5"}`, token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		// Password must be unchanged.
		if rec := login(t, mux, "admin", "admin123"); rec.Code != http.StatusOK {
			t.Errorf("old password no longer works after rejected change")
		}
	})

	t.Run("wrong current password", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/auth/change-password",
			`{"currentPassword":"not-the-password","newPassword":"brand-new-pass"}`, token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/auth/change-password",
			`{"currentPassword":"admin123"}`, token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("success rotates the hash", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/auth/change-password",
			`{"currentPassword":"admin123","newPassword":"brand-new-pass"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
		}

		if rec := login(t, mux, "admin", "admin123"); rec.Code != http.StatusUnauthorized {
			t.Errorf("old password still accepted after change")
		}
		if rec := login(t, mux, "admin", "brand-new-pass"); rec.Code != http.StatusOK {
			t.Errorf("new password rejected after change")
		}
	})
}
