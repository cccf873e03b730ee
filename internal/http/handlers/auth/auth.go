// Package auth contains the HTTP handlers for login, session
// introspection, and password changes.
//
// Like the student handlers, every function here is a factory: it takes
// its dependencies (storage, the token manager) and returns the actual
// http.HandlerFunc.
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"student-records-api/internal/auth"
	"student-records-api/internal/http/middleware"
	"student-records-api/internal/storage"
	"student-records-api/internal/types"
	"student-records-api/internal/utils/response"

	"golang.org/x/crypto/bcrypt"
)

// errInvalidCredentials is the single message returned for both an
// unknown username and a wrong password, so the response never reveals
// which half failed.
var errInvalidCredentials = errors.New("Invalid username or password")

const minPasswordLength = 6

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /api/auth/login
//
// Request body (JSON):
//
//	{ "username": "admin", "password": "admin123" }
//
// Success response (200 OK):
//
//	{ "message": "Login successful", "token": "<jwt>", "user": {...} }
//
// Error responses:
//
//	400 Bad Request   — missing username or password
//	401 Unauthorized  — unknown user OR wrong password (same message)
//
// ─────────────────────────────────────────────────────────────────────────────
func Login(store storage.Storage, tokens *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid request body")))
			return
		}

		if req.Username == "" || req.Password == "" {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("Username and password are required")))
			return
		}

		user, err := store.GetUserByUsername(strings.TrimSpace(req.Username))
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				response.WriteJSON(w, http.StatusUnauthorized,
					response.GeneralError(errInvalidCredentials))
				return
			}
			slog.Error("login: user lookup failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("internal server error")))
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errInvalidCredentials))
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			slog.Error("login: token issue failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("internal server error")))
			return
		}

		slog.Info("user logged in", slog.String("username", user.Username))

		// types.User marshals without the password hash (json:"-").
		response.WriteJSON(w, http.StatusOK, map[string]any{
			"message": "Login successful",
			"token":   token,
			"user":    user,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Me handles GET /api/auth/me
// Echoes the claim set of the presented token ("who am I").
//
// Success response (200 OK):
//
//	{ "user": { "id": 1, "username": "admin", "role": "admin" } }
//
// ─────────────────────────────────────────────────────────────────────────────
func Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFrom(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errors.New("Authentication required")))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{
				"id":       claims.UserID,
				"username": claims.Username,
				"role":     claims.Role,
			},
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ChangePassword handles POST /api/auth/change-password
//
// Request body (JSON):
//
//	{ "currentPassword": "admin123", "newPassword": "s3cret!" }
//
// The current password is re-verified against the stored hash even
// though the caller already holds a valid token. On success the hash is
// replaced with a freshly salted one.
//
// Error responses:
//
//	400 Bad Request   — missing fields, or new password under 6 chars
//	401 Unauthorized  — current password does not match
//
// ─────────────────────────────────────────────────────────────────────────────
func ChangePassword(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFrom(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errors.New("Authentication required")))
			return
		}

		var req types.ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid request body")))
			return
		}

		if req.CurrentPassword == "" || req.NewPassword == "" {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("Both fields are required")))
			return
		}
		if len(req.NewPassword) < minPasswordLength {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("New password must be at least 6 characters")))
			return
		}

		user, err := store.GetUserByID(claims.UserID)
		if err != nil {
			slog.Error("change-password: user lookup failed",
				slog.Int64("user_id", claims.UserID),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("internal server error")))
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errors.New("Current password is incorrect")))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("change-password: hash failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("internal server error")))
			return
		}

		if err := store.UpdateUserPassword(user.ID, string(hash)); err != nil {
			slog.Error("change-password: update failed",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("internal server error")))
			return
		}

		slog.Info("password changed", slog.String("username", user.Username))
		response.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Password changed successfully",
		})
	}
}
