package auth

const (
	ContextKeyPrincipal = "principal"
	ContextKeyUserID    = "user_id"
	ContextKeyAuthType  = "auth_type"

	headerAuthorization = "Authorization"
	headerAPIKey        = "X-API-Key"

	queryParamToken        = "token"
	defaultTokenCookieName = "token"

	bearerScheme    = "bearer"
	authHeaderParts = 2

	jsonKeyRequiredPermission = "requiredPermission"
	jsonKeyRole               = "role"
)

const (
	msgNoTokenProvided          = "No JWT token provided"
	msgInvalidOrExpiredToken    = "Invalid or expired token"
	msgFingerprintMismatch      = "Token fingerprint mismatch"
	msgInvalidAPIKey            = "Invalid API key"
	msgAuthenticationRequired   = "Authentication required"
	msgInsufficientPermissions  = "Insufficient permissions"
	msgNotResourceOwner         = "You do not have access to this resource"
	msgOwnerUnresolvable        = "Unable to determine resource owner"
	msgUserNotAuthenticated     = "user not authenticated"
	msgInvalidPrincipalCtx      = "invalid principal in context"
	msgUnexpectedSigningMethod  = "unexpected signing method: %v"
	msgTokenParseFailed         = "failed to parse token: %w"
	msgInvalidTokenClaims       = "invalid token claims"
	msgTokenMissingSubject      = "token carries no user id"
	msgOwnerParamMissingFmt     = "path parameter %s is empty"
	msgAPIKeyDefinitionEmptyFmt = "api key %q has empty key or role"
)

type AuthType string

const (
	AuthTypeJWT    AuthType = "jwt"
	AuthTypeAPIKey AuthType = "api_key"
)

// TokenSource records where a bearer token was found.
type TokenSource string

const (
	TokenSourceNone         TokenSource = ""
	TokenSourceBearerHeader TokenSource = "bearer_header"
	TokenSourceRawHeader    TokenSource = "raw_header"
	TokenSourceCookie       TokenSource = "cookie"
	TokenSourceQuery        TokenSource = "query"
)
