package auth

import (
	"errors"
	"testing"

	"auth-gateway/internal/rbac/presets"
	apperrors "auth-gateway/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPIKeys(t *testing.T) *APIKeyService {
	t.Helper()
	svc, err := NewAPIKeyService([]APIKeyDefinition{
		{Name: "billing", Key: "billing-key-123", Role: presets.RoleService},
		{Name: "ops", Key: "ops-key-456", Role: presets.RoleStaff},
	}, "test-salt")
	require.NoError(t, err)
	return svc
}

func TestAPIKeyService_Authenticate(t *testing.T) {
	svc := newTestAPIKeys(t)
	assert.True(t, svc.Enabled())

	p, err := svc.Authenticate("ops-key-456")
	require.NoError(t, err)
	assert.Equal(t, "apikey:ops", p.UserID)
	assert.Equal(t, "ops", p.Username)
	assert.Equal(t, presets.RoleStaff, p.Role)
	assert.Equal(t, AuthTypeAPIKey, p.AuthType)
}

func TestAPIKeyService_RejectsUnknownKey(t *testing.T) {
	svc := newTestAPIKeys(t)

	for _, key := range []string{"", "nope", "billing-key-12"} {
		_, err := svc.Authenticate(key)
		assert.True(t, errors.Is(err, apperrors.ErrAPIKeyInvalid), key)
	}
}

func TestAPIKeyService_Disabled(t *testing.T) {
	svc, err := NewAPIKeyService(nil, "")
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	var nilSvc *APIKeyService
	assert.False(t, nilSvc.Enabled())

	_, err = svc.Authenticate("anything")
	assert.True(t, errors.Is(err, apperrors.ErrAPIKeyInvalid))
}

func TestNewAPIKeyService_RejectsIncompleteDefinition(t *testing.T) {
	_, err := NewAPIKeyService([]APIKeyDefinition{{Name: "broken", Key: "k"}}, "")
	assert.Error(t, err)

	_, err = NewAPIKeyService([]APIKeyDefinition{{Name: "broken", Role: presets.RoleService}}, "")
	assert.Error(t, err)
}

func TestConstantTimeCompareHashes(t *testing.T) {
	assert.True(t, ConstantTimeCompareHashes("abc", "abc"))
	assert.False(t, ConstantTimeCompareHashes("abc", "abd"))
	assert.False(t, ConstantTimeCompareHashes("abc", "abcd"))
	assert.False(t, ConstantTimeCompareHashes("abcd", "abc"))
	assert.True(t, ConstantTimeCompareHashes("", ""))
}

func TestHashKeySecureWithSalt(t *testing.T) {
	h := HashKeySecureWithSalt("key", []byte(defaultAPIKeySalt))
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKeySecureWithSalt("key", []byte(defaultAPIKeySalt)))
	assert.NotEqual(t, h, HashKeySecureWithSalt("key", []byte("other-salt")))
}
