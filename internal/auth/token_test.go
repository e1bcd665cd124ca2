package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cpcoach/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	i := NewIssuer("secret", time.Hour)
	token, exp, err := i.Issue("tourist")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	handle, err := i.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "tourist", handle)
}

func TestParseRejects(t *testing.T) {
	i := NewIssuer("secret", time.Hour)
	good, _, err := i.Issue("tourist")
	require.NoError(t, err)

	other, _, err := NewIssuer("another-secret", time.Hour).Issue("tourist")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Handle: "tourist"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", other},
		{"none algorithm", none},
		{"truncated", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := i.Parse(tt.token)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}
}

func TestParseExpired(t *testing.T) {
	i := NewIssuer("secret", time.Minute)
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return issued }
	token, _, err := i.Issue("tourist")
	require.NoError(t, err)

	i.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = i.Parse(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestDisabledIssuer(t *testing.T) {
	i := NewIssuer("", 0)
	assert.False(t, i.Enabled())
	_, _, err := i.Issue("tourist")
	assert.Error(t, err)
	_, err = i.Parse("anything")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Authorize(ctx, "tourist", false))
	assert.ErrorIs(t, Authorize(ctx, "tourist", true), models.ErrUnauthorized)

	ctx = WithHandle(ctx, "tourist")
	assert.NoError(t, Authorize(ctx, "tourist", true))
	assert.ErrorIs(t, Authorize(ctx, "petr", true), models.ErrUnauthorized)
}

func TestAdminKey(t *testing.T) {
	_, err := HashAdminKey("short")
	assert.Error(t, err)

	hash, err := HashAdminKey("a-long-enough-admin-key")
	require.NoError(t, err)
	assert.True(t, VerifyAdminKey(hash, "a-long-enough-admin-key"))
	assert.False(t, VerifyAdminKey(hash, "a-long-enough-admin-kez"))
	assert.False(t, VerifyAdminKey(hash, ""))
	assert.False(t, VerifyAdminKey("", "a-long-enough-admin-key"))
}
