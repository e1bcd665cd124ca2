// Package auth issues handle-bound session tokens and verifies the admin
// key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpcoach/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const purposeChallenge = "challenge"

// Claims binds a token to one Codeforces handle. Challenge tokens also
// carry the problem the owner must submit to.
type Claims struct {
	Handle    string `json:"handle"`
	Purpose   string `json:"purpose,omitempty"`
	ProblemID string `json:"problem_id,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (i *Issuer) Enabled() bool { return len(i.secret) > 0 }

// Issue signs a session token for a handle whose ownership was proven.
func (i *Issuer) Issue(handle string) (string, time.Time, error) {
	return i.sign(Claims{Handle: handle}, i.ttl)
}

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, errors.New("issue token: no signing secret configured")
	}
	now := i.now()
	exp := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Handle,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (i *Issuer) parse(raw string) (*Claims, error) {
	if !i.Enabled() {
		return nil, fmt.Errorf("%w: tokens are not enabled", models.ErrUnauthorized)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if claims.Handle == "" {
		return nil, fmt.Errorf("%w: token carries no handle", models.ErrUnauthorized)
	}
	return claims, nil
}

// Parse verifies a session token and returns the handle it is bound to.
// Every failure wraps models.ErrUnauthorized.
func (i *Issuer) Parse(raw string) (string, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Purpose != "" {
		return "", fmt.Errorf("%w: not a session token", models.ErrUnauthorized)
	}
	return claims.Handle, nil
}

type ctxKey struct{}

func WithHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, ctxKey{}, handle)
}

// HandleFromContext returns the handle of the verified token, if any.
func HandleFromContext(ctx context.Context) (string, bool) {
	h, ok := ctx.Value(ctxKey{}).(string)
	return h, ok && h != ""
}

// Authorize checks that the request may act on handle. Without required
// any caller may; otherwise the token's handle must match.
func Authorize(ctx context.Context, handle string, required bool) error {
	if !required {
		return nil
	}
	h, ok := HandleFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: authentication required", models.ErrUnauthorized)
	}
	if h != handle {
		return fmt.Errorf("%w: token is not valid for handle %s", models.ErrUnauthorized, handle)
	}
	return nil
}
