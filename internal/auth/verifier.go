package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSecret     = errors.New("token verification is not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// UserContext identifies the caller of a user-authenticated request.
type UserContext struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// UserClaims is the payload of a user token. The user id is read from
// user_id, falling back to sub.
type UserClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

func (v *Verifier) parse(tokenString string, claims jwt.Claims) error {
	if !v.Enabled() {
		return ErrNoSecret
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}

// Verify checks the signature and time claims only. It is used for
// webhook calls, whose tokens carry no user.
func (v *Verifier) Verify(tokenString string) error {
	return v.parse(tokenString, &jwt.RegisteredClaims{})
}

// ParseUserToken verifies tokenString and extracts the user.
func (v *Verifier) ParseUserToken(tokenString string) (*UserContext, error) {
	var claims UserClaims
	if err := v.parse(tokenString, &claims); err != nil {
		return nil, err
	}

	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q is not a UUID", ErrInvalidToken, raw)
	}

	return &UserContext{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
