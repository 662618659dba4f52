package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(clock *fakeClock) *TokenService {
	return NewTokenService("test-secret", "fintrack", WithClock(clock.Now))
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock)

	token, err := svc.Issue("65f0c0ffee", "ada", "ada@example.com")
	require.NoError(t, err)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee", id.UserID)
	assert.Equal(t, "ada", id.Username)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.True(t, clock.t.Add(time.Hour).Equal(id.ExpiresAt))
}

func TestVerifyExpiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issued}
	svc := newTestService(clock)

	token, err := svc.Issue("u1", "ada", "")
	require.NoError(t, err)

	clock.t = issued.Add(59 * time.Minute)
	_, err = svc.Verify(token)
	assert.NoError(t, err)

	clock.t = issued.Add(time.Hour)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	clock.t = issued.Add(61 * time.Minute)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyInvalidSignature(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	token, err := newTestService(clock).Issue("u1", "ada", "")
	require.NoError(t, err)

	other := NewTokenService("another-secret", "fintrack", WithClock(clock.Now))
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = newTestService(clock).Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	claims := jwt.MapClaims{
		"userId": "u1",
		"iss":    "fintrack",
		"exp":    clock.t.Add(time.Hour).Unix(),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestService(clock).Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyMalformed(t *testing.T) {
	svc := newTestService(&fakeClock{t: time.Now()})

	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	token, err := NewTokenService("test-secret", "someone-else", WithClock(clock.Now)).Issue("u1", "ada", "")
	require.NoError(t, err)

	_, err = newTestService(clock).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("hunter23", hash))
}
