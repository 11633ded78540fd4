package auth

import (
	"fmt"

	"auth-gateway/internal/rbac"
	apperrors "auth-gateway/pkg/errors"
)

// APIKeyDefinition is a configured server-to-server credential.
type APIKeyDefinition struct {
	Name string
	Key  string
	Role rbac.Role
}

type storedAPIKey struct {
	name string
	hash string
	role rbac.Role
}

// APIKeyService validates x-api-key credentials. Plain keys are hashed at
// construction and dropped.
type APIKeyService struct {
	keys []storedAPIKey
	salt []byte
}

func NewAPIKeyService(defs []APIKeyDefinition, salt string) (*APIKeyService, error) {
	if salt == "" {
		salt = defaultAPIKeySalt
	}
	s := &APIKeyService{salt: []byte(salt)}
	for _, d := range defs {
		if d.Key == "" || d.Role == "" {
			return nil, fmt.Errorf(msgAPIKeyDefinitionEmptyFmt, d.Name)
		}
		s.keys = append(s.keys, storedAPIKey{
			name: d.Name,
			hash: HashKeySecureWithSalt(d.Key, s.salt),
			role: d.Role,
		})
	}
	return s, nil
}

// Enabled reports whether any key is configured.
func (s *APIKeyService) Enabled() bool {
	return s != nil && len(s.keys) > 0
}

// Authenticate returns the service Principal for key. Every configured key
// is compared so the timing does not reveal which one matched.
func (s *APIKeyService) Authenticate(key string) (*Principal, error) {
	if !s.Enabled() || key == "" {
		return nil, apperrors.Wrap(apperrors.ErrAPIKeyInvalid, msgInvalidAPIKey)
	}

	hash := HashKeySecureWithSalt(key, s.salt)

	var match *storedAPIKey
	for i := range s.keys {
		if ConstantTimeCompareHashes(hash, s.keys[i].hash) && match == nil {
			match = &s.keys[i]
		}
	}
	if match == nil {
		return nil, apperrors.Wrap(apperrors.ErrAPIKeyInvalid, msgInvalidAPIKey)
	}

	return &Principal{
		UserID:   "apikey:" + match.name,
		Username: match.name,
		Role:     match.role,
		AuthType: AuthTypeAPIKey,
	}, nil
}
