package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(&JWTConfig{
		Secret:            "test-secret",
		AccessTokenExpiry: expiry,
		Issuer:            "hearth",
	})
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleParent.Valid())
	assert.True(t, RoleStudent.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	userID := uuid.New()
	familyID := uuid.New()

	token, expiresAt, err := m.GenerateAccessToken(userID, familyID, RoleParent)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, familyID, claims.FamilyID)
	assert.Equal(t, RoleParent, claims.Role)
	assert.Equal(t, "hearth", claims.Issuer)
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	_, _, err := m.GenerateAccessToken(uuid.New(), uuid.New(), Role("admin"))
	assert.Error(t, err)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := newTestManager(-time.Minute)
	token, _, err := m.GenerateAccessToken(uuid.New(), uuid.New(), RoleStudent)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	token, _, err := m.GenerateAccessToken(uuid.New(), uuid.New(), RoleParent)
	require.NoError(t, err)

	other := NewJWTManager(&JWTConfig{Secret: "other-secret", AccessTokenExpiry: 15 * time.Minute, Issuer: "hearth"})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_GarbageToken(t *testing.T) {
	m := newTestManager(15 * time.Minute)
	_, err := m.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
