package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyResolver(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/orders/checkout", nil)

	p, err := LegacyResolver{}.Resolve(req, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 42, p.UserID)
	assert.Equal(t, SourceLegacy, p.Source)

	_, err = LegacyResolver{}.Resolve(req, 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = LegacyResolver{}.Resolve(req, -3)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTResolver(t *testing.T) {
	resolver := NewJWTResolver("secret")
	token, err := GenerateToken("secret", 7, "a@b.c", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/orders/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	p, err := resolver.Resolve(req, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, p.UserID)
	assert.Equal(t, "a@b.c", p.Email)
	assert.True(t, p.IsAdmin())

	_, err = resolver.Resolve(req, 8)
	assert.ErrorIs(t, err, ErrUnauthenticated, "userId du body différent du token")

	wrong, err := GenerateToken("other", 7, "", "")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+wrong)
	_, err = resolver.Resolve(req, 7)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("Authorization", token)
	_, err = resolver.Resolve(req, 7)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTResolverExpired(t *testing.T) {
	claims := jwt.MapClaims{"user_id": "5", "exp": time.Now().Add(-time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	_, err = NewJWTResolver("secret").Resolve(req, 5)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
