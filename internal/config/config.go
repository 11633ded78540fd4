package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envEnvironment           = "ENVIRONMENT"
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envRequestTimeout        = "REQUEST_TIMEOUT"
	envEnableProfiling       = "ENABLE_PROFILING"
	envJWTSecret             = "JWT_SECRET"
	envJWTExpiry             = "JWT_EXPIRY_MINUTES"
	envTokenCookieName       = "TOKEN_COOKIE_NAME"
	envCSRFSecret            = "CSRF_SECRET"
	envCSRFTTL               = "CSRF_TTL"
	envCSRFExemptPrefixes    = "CSRF_EXEMPT_PREFIXES"
	envCORSAllowedOrigins    = "CORS_ALLOWED_ORIGINS"
	envCORSAllowLocalhost    = "CORS_ALLOW_LOCALHOST"
	envPublicPrefixes        = "PUBLIC_PATH_PREFIXES"
	envOptionalAuthPrefixes  = "OPTIONAL_AUTH_PATH_PREFIXES"
	envRateLimitWindow       = "RATE_LIMIT_WINDOW"
	envRateLimitMax          = "RATE_LIMIT_MAX"
	envRateLimitExempt       = "RATE_LIMIT_EXEMPT_PREFIXES"
	envRateLimitStore        = "RATE_LIMIT_STORE"
	envRedisAddr             = "REDIS_ADDR"
	envRedisPassword         = "REDIS_PASSWORD"
	envRedisDB               = "REDIS_DB"
	envFrontendCookieName    = "FRONTEND_COOKIE_NAME"
	envDatabaseURL           = "DATABASE_URL"
	envDBMaxConns            = "DB_MAX_CONNS"
	envAPIKeySalt            = "API_KEY_SALT"
	envAuditBufferSize       = "AUDIT_BUFFER_SIZE"
	envPolicyFile            = "GATEWAY_POLICY_FILE"
	envLogLevel              = "LOG_LEVEL"
	envLogFormat             = "LOG_FORMAT"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

const (
	defaultServerPort          = "8080"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 35 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultRequestTimeout      = 30 * time.Second
	defaultJWTExpiry           = 60 * time.Minute
	defaultTokenCookieName     = "token"
	defaultCSRFTTL             = time.Hour
	defaultRateLimitWindow     = 60 * time.Second
	defaultRateLimitMax        = 200
	defaultRedisAddr           = "localhost:6379"
	defaultFrontendCookieName  = "frontend_client"
	defaultDBMaxConns          = 10
	defaultAuditBufferSize     = 1000
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	minJWTSecretLength         = 32
	minCSRFSecretLength        = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	errPortRequired            = "PORT must be set"
	errSecretMinLengthFmt      = "%s must be at least %d characters"
	errSecretLowEntropyFmt     = "%s has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errSecretsEqual            = "CSRF_SECRET must differ from JWT_SECRET"
	errRateLimitMaxFmt         = "RATE_LIMIT_MAX must be positive, got %d"
	errRateLimitWindowFmt      = "RATE_LIMIT_WINDOW must be positive, got %s"
	errProductionWildcard      = "CORS_ALLOWED_ORIGINS must not contain \"*\" in production"
	errAPIKeyIncompleteFmt     = "api key %q needs a key and a role"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Environment string
	Server      ServerConfig
	JWT         JWTConfig
	CSRF        CSRFConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Frontend    FrontendConfig
	Database    DatabaseConfig
	Audit       AuditConfig
	Log         LogConfig
	APIKeys     []APIKeyConfig
	APIKeySalt  string
	PolicyFile  string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	// EnableProfiling mounts pprof behind the users:manage permission.
	EnableProfiling bool
}

type JWTConfig struct {
	Secret         string
	ExpiryDuration time.Duration
	CookieName     string
}

type CSRFConfig struct {
	Secret         string
	TTL            time.Duration
	ExemptPrefixes []string
}

type CORSConfig struct {
	AllowedOrigins       []string
	PublicPrefixes       []string
	OptionalAuthPrefixes []string
	AllowLocalhost       bool
}

type RateLimitConfig struct {
	Window         time.Duration
	Max            int
	ExemptPrefixes []string
	Store          string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

type FrontendConfig struct {
	CookieName string
}

// DatabaseConfig is optional; an empty URL disables the Postgres audit sink.
type DatabaseConfig struct {
	URL      string
	MaxConns int
}

// AuditConfig bounds the queue of denials waiting for the audit sinks.
// Denials beyond it are dropped.
type AuditConfig struct {
	BufferSize int
}

type LogConfig struct {
	Level  string
	Format string
}

// APIKeyConfig is one configured x-api-key credential.
type APIKeyConfig struct {
	Name string
	Key  string
	Role string
}

// Load builds the configuration from defaults, the optional policy file and
// the environment, in that order of precedence from lowest to highest.
func Load() (*Config, error) {
	env := getEnv(envEnvironment, EnvironmentDevelopment)

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			RequestTimeout:  getDurationEnv(envRequestTimeout, defaultRequestTimeout),
			EnableProfiling: getBoolEnv(envEnableProfiling, false),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv(envJWTSecret),
			ExpiryDuration: getMinutesEnv(envJWTExpiry, defaultJWTExpiry),
			CookieName:     getEnv(envTokenCookieName, defaultTokenCookieName),
		},
		CSRF: CSRFConfig{
			Secret: os.Getenv(envCSRFSecret),
			TTL:    getDurationEnv(envCSRFTTL, defaultCSRFTTL),
		},
		CORS: CORSConfig{
			PublicPrefixes: []string{"/health", "/metrics"},
			AllowLocalhost: getBoolEnv(envCORSAllowLocalhost, env != EnvironmentProduction),
		},
		RateLimit: RateLimitConfig{
			Window:        getDurationEnv(envRateLimitWindow, defaultRateLimitWindow),
			Max:           getIntEnv(envRateLimitMax, defaultRateLimitMax),
			Store:         strings.ToLower(getEnv(envRateLimitStore, RateLimitStoreMemory)),
			RedisAddr:     getEnv(envRedisAddr, defaultRedisAddr),
			RedisPassword: os.Getenv(envRedisPassword),
			RedisDB:       getIntEnv(envRedisDB, 0),
		},
		Frontend: FrontendConfig{
			CookieName: getEnv(envFrontendCookieName, defaultFrontendCookieName),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv(envDatabaseURL),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
		},
		Audit: AuditConfig{
			BufferSize: getIntEnv(envAuditBufferSize, defaultAuditBufferSize),
		},
		Log: LogConfig{
			Level:  getEnv(envLogLevel, defaultLogLevel),
			Format: getEnv(envLogFormat, defaultLogFormat),
		},
		APIKeySalt: os.Getenv(envAPIKeySalt),
		PolicyFile: os.Getenv(envPolicyFile),
	}

	if cfg.PolicyFile != "" {
		policy, err := LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
		}
		if err := policy.Apply(cfg); err != nil {
			return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
		}
	}

	cfg.CORS.AllowedOrigins = getListEnv(envCORSAllowedOrigins, cfg.CORS.AllowedOrigins)
	cfg.CORS.PublicPrefixes = getListEnv(envPublicPrefixes, cfg.CORS.PublicPrefixes)
	cfg.CORS.OptionalAuthPrefixes = getListEnv(envOptionalAuthPrefixes, cfg.CORS.OptionalAuthPrefixes)
	cfg.RateLimit.ExemptPrefixes = getListEnv(envRateLimitExempt, cfg.RateLimit.ExemptPrefixes)
	cfg.CSRF.ExemptPrefixes = getListEnv(envCSRFExemptPrefixes, cfg.CSRF.ExemptPrefixes)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New(errPortRequired)
	}

	if c.Environment != EnvironmentDevelopment && c.Environment != EnvironmentProduction {
		return errors.New(messages.oneOf(envEnvironment, EnvironmentDevelopment, EnvironmentProduction, c.Environment))
	}

	if err := validateSecret(envJWTSecret, c.JWT.Secret, minJWTSecretLength); err != nil {
		return err
	}

	if err := validateSecret(envCSRFSecret, c.CSRF.Secret, minCSRFSecretLength); err != nil {
		return err
	}

	if c.CSRF.Secret == c.JWT.Secret {
		return errors.New(errSecretsEqual)
	}

	if c.RateLimit.Max <= 0 {
		return fmt.Errorf(errRateLimitMaxFmt, c.RateLimit.Max)
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf(errRateLimitWindowFmt, c.RateLimit.Window)
	}

	if c.RateLimit.Store != RateLimitStoreMemory && c.RateLimit.Store != RateLimitStoreRedis {
		return errors.New(messages.oneOf(envRateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis, c.RateLimit.Store))
	}

	if c.IsProduction() {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return errors.New(errProductionWildcard)
			}
		}
	}

	for _, k := range c.APIKeys {
		if k.Key == "" || k.Role == "" {
			return fmt.Errorf(errAPIKeyIncompleteFmt, k.Name)
		}
	}

	return nil
}

func validateSecret(name, secret string, minLength int) error {
	if secret == "" {
		return errors.New(messages.requiredEnvNotSet(name))
	}

	if len(secret) < minLength {
		return errors.New(messages.secretTooShort(name, minLength))
	}

	if !hasMinimumEntropy(secret) {
		return errors.New(messages.secretLowEntropy(name))
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv reads a Go duration ("30s", "1h"). A bare integer is a
// number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	return parseDurationEnv(key, defaultValue, time.Second)
}

// getMinutesEnv is getDurationEnv for variables counted in minutes.
func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	return parseDurationEnv(key, defaultValue, time.Minute)
}

func parseDurationEnv(key string, defaultValue, unit time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * unit
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable. A set but blank variable
// yields an empty list, which lets operators clear a file-provided list.
func getListEnv(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return splitList(value)
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
