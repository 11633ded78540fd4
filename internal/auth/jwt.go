package auth

import (
	"errors"
	"fmt"
	"time"

	"auth-gateway/internal/rbac"

	"github.com/golang-jwt/jwt/v5"
)

type JWTClaims struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Username    string    `json:"username,omitempty"`
	Role        rbac.Role `json:"role"`
	Fingerprint string    `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request identity.
func (c *JWTClaims) Principal() *Principal {
	return &Principal{
		UserID:      c.UserID,
		Email:       c.Email,
		Phone:       c.Phone,
		Username:    c.Username,
		Role:        c.Role,
		Fingerprint: c.Fingerprint,
		AuthType:    AuthTypeJWT,
	}
}

// JWTService verifies bearer tokens. Generate exists for the login flow
// that issues them and for tests; the gateway itself only verifies.
type JWTService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Generate signs a token for p. A non-empty fingerprint binds the token to
// the device that requested it.
func (s *JWTService) Generate(p Principal, fingerprint string) (string, error) {
	now := s.now()
	claims := JWTClaims{
		UserID:      p.UserID,
		Email:       p.Email,
		Phone:       p.Phone,
		Username:    p.Username,
		Role:        p.Role,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry. Any failure, including a panic in
// the parser, comes back as an error.
func (s *JWTService) Verify(tokenString string) (claims *JWTClaims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, fmt.Errorf(msgTokenParseFailed, fmt.Errorf("%v", r))
		}
	}()

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(msgUnexpectedSigningMethod, token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		return nil, fmt.Errorf(msgTokenParseFailed, err)
	}

	parsed, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New(msgInvalidTokenClaims)
	}
	if parsed.UserID == "" {
		parsed.UserID = parsed.Subject
	}
	if parsed.UserID == "" {
		return nil, errors.New(msgTokenMissingSubject)
	}

	return parsed, nil
}
