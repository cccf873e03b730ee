// Package auth issues and verifies the signed session tokens that gate
// every protected route.
//
// Tokens are stateless: the server keeps no session table. A token is
// valid if and only if its HMAC signature checks out against the
// configured secret and its expiry has not passed. There is no
// revocation list and no refresh mechanism — expiry is the only
// time-bound control.
package auth

import (
	"errors"
	"time"

	"student-records-api/internal/types"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature,
// malformed token, wrong claims type, or expired. Its message is the
// exact wire text clients see on a rejected token.
var ErrInvalidToken = errors.New("Invalid or expired token")

// Claims is the decoded payload of a session token — the "claim set"
// handed back to clients on /api/auth/me.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single HMAC secret.
// The secret comes from configuration; there is no built-in fallback.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// New returns a Manager signing with the given secret. Tokens expire
// ttl after issuance.
func New(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed HS256 token embedding the user's id, username,
// and role.
func (m *Manager) Issue(user types.User) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a signed token, returning the embedded
// claims. Any failure — including expiry, which jwt/v5 checks during
// parsing — collapses to ErrInvalidToken so callers don't leak the
// reason to clients.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
