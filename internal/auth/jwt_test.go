package auth

import (
	"testing"
	"time"

	"auth-gateway/internal/rbac/presets"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

func testPrincipal() Principal {
	return Principal{
		UserID:   "user-1",
		Email:    "user@example.com",
		Username: "user",
		Role:     presets.RoleCustomer,
	}
}

func TestJWTService_GenerateAndVerify(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	token, err := svc.Generate(testPrincipal(), "")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)

	p := claims.Principal()
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "user@example.com", p.Email)
	assert.Equal(t, presets.RoleCustomer, p.Role)
	assert.Equal(t, AuthTypeJWT, p.AuthType)
	assert.False(t, p.HasFingerprint())
}

func TestJWTService_CarriesFingerprint(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	fp := Fingerprint("agent", "10.0.0.1")

	token, err := svc.Generate(testPrincipal(), fp)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, fp, claims.Principal().Fingerprint)
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	token, err := NewJWTService("another-secret-entirely-9876543210", time.Hour).Generate(testPrincipal(), "")
	require.NoError(t, err)

	_, err = NewJWTService(testSecret, time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService(testSecret, time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.Generate(testPrincipal(), "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsMissingExpiry(t *testing.T) {
	claims := JWTClaims{UserID: "user-1", Role: presets.RoleCustomer}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewJWTService(testSecret, time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	claims := JWTClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService(testSecret, time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestJWTService_FallsBackToSubject(t *testing.T) {
	claims := JWTClaims{
		Role: presets.RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	parsed, err := NewJWTService(testSecret, time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-7", parsed.UserID)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	for _, token := range []string{"", "abc", "a.b.c", "Bearer x.y.z"} {
		_, err := svc.Verify(token)
		assert.Error(t, err, token)
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("Mozilla/5.0", "203.0.113.5")

	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("Mozilla/5.0", "203.0.113.5"))
	assert.NotEqual(t, fp, Fingerprint("Mozilla/5.0", "203.0.113.6"))
	assert.NotEqual(t, fp, Fingerprint("curl/8.0", "203.0.113.5"))

	assert.True(t, MatchFingerprint(fp, "Mozilla/5.0", "203.0.113.5"))
	assert.False(t, MatchFingerprint(fp, "Mozilla/5.0", "198.51.100.1"))
}
