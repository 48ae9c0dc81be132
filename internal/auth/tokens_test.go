package auth

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func testUser() *domain.User {
	u := &domain.User{
		Email: "reader@example.com",
		Role:  domain.RoleCustomer,
	}
	u.ID = "user-test123"
	return u
}

func TestNewTokenService_RejectsBadKeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)
}

func TestSessionToken_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(newTestKey(t), time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateSessionToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifySessionToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-test123", claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.Equal(t, string(domain.RoleCustomer), claims.Role)
	assert.False(t, claims.IsAdmin())
	assert.NotEmpty(t, claims.TokenID)
}

func TestSessionToken_AdminClaim(t *testing.T) {
	svc, err := NewTokenService(newTestKey(t), time.Hour)
	require.NoError(t, err)

	admin := testUser()
	admin.Role = domain.RoleAdmin

	token, err := svc.GenerateSessionToken(admin)
	require.NoError(t, err)

	claims, err := svc.VerifySessionToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestSessionToken_Expired(t *testing.T) {
	svc, err := NewTokenService(newTestKey(t), -time.Minute)
	require.NoError(t, err)

	token, err := svc.GenerateSessionToken(testUser())
	require.NoError(t, err)

	_, err = svc.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestSessionToken_WrongKey(t *testing.T) {
	issuer, err := NewTokenService(newTestKey(t), time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService(newTestKey(t), time.Hour)
	require.NoError(t, err)

	token, err := issuer.GenerateSessionToken(testUser())
	require.NoError(t, err)

	_, err = verifier.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestSessionToken_Garbage(t *testing.T) {
	svc, err := NewTokenService(newTestKey(t), time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifySessionToken("v4.local.not-a-real-token")
	assert.Error(t, err)
}

func TestVerifyPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
