package auth

import (
	"testing"
	"time"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestNewTokenIssuer_DefaultTTL(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, issuer.TTL())
}

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	user := &domain.User{ID: 42, Name: "Dewi", Role: domain.RoleAdmin}
	token, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "Dewi", claims.Name)
	assert.Equal(t, "admin", claims.Role)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", -time.Minute)
	require.NoError(t, err)
	// Negative TTL falls back to the default, so force expiry directly.
	issuer.ttl = -time.Minute

	token, err := issuer.Issue(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokenIssuer("secret-one", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("secret-two", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(&domain.User{ID: 1})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify("not.a.token")
	assert.Error(t, err)
}
