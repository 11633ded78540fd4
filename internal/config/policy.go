package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	errPolicyReadFmt   = "read policy file %s: %w"
	errPolicyParseFmt  = "parse policy file %s: %w"
	errPolicyKeyEnvFmt = "api key %q: environment variable %s is not set"
	errPolicyKeySource = "api key %q: set exactly one of key or key_env"
)

// Policy is the optional YAML file describing the gateway policy:
//
//	cors:
//	  allowed_origins: ["https://app.example.org", "https://*.example.com"]
//	  public_prefixes: ["/health", "/api/public/"]
//	  optional_auth_prefixes: ["/api/content/"]
//	rate_limit:
//	  exempt_prefixes: ["/api/content/"]
//	csrf:
//	  exempt_prefixes: ["/api/auth/login"]
//	api_keys:
//	  - name: billing
//	    key_env: BILLING_API_KEY
//	    role: service
//
// Keys should come from key_env so the file can be committed.
type Policy struct {
	CORS      CORSPolicy      `yaml:"cors"`
	RateLimit RateLimitPolicy `yaml:"rate_limit"`
	CSRF      CSRFPolicy      `yaml:"csrf"`
	APIKeys   []APIKeyPolicy  `yaml:"api_keys"`
}

type CORSPolicy struct {
	AllowedOrigins       []string `yaml:"allowed_origins"`
	PublicPrefixes       []string `yaml:"public_prefixes"`
	OptionalAuthPrefixes []string `yaml:"optional_auth_prefixes"`
}

type RateLimitPolicy struct {
	ExemptPrefixes []string `yaml:"exempt_prefixes"`
	Max            int      `yaml:"max"`
}

type CSRFPolicy struct {
	ExemptPrefixes []string `yaml:"exempt_prefixes"`
}

type APIKeyPolicy struct {
	Name   string `yaml:"name"`
	Key    string `yaml:"key"`
	KeyEnv string `yaml:"key_env"`
	Role   string `yaml:"role"`
}

func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(errPolicyReadFmt, path, err)
	}
	policy, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf(errPolicyParseFmt, path, err)
	}
	return policy, nil
}

// ParsePolicy decodes a policy document. Unknown fields are rejected so a
// typo cannot silently drop an allow-list.
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil {
		// an empty document is a valid, empty policy
		if errors.Is(err, io.EOF) {
			return &policy, nil
		}
		return nil, err
	}
	return &policy, nil
}

// Apply copies the non-empty policy sections into cfg.
func (p *Policy) Apply(cfg *Config) error {
	if p.CORS.AllowedOrigins != nil {
		cfg.CORS.AllowedOrigins = p.CORS.AllowedOrigins
	}
	if p.CORS.PublicPrefixes != nil {
		cfg.CORS.PublicPrefixes = p.CORS.PublicPrefixes
	}
	if p.CORS.OptionalAuthPrefixes != nil {
		cfg.CORS.OptionalAuthPrefixes = p.CORS.OptionalAuthPrefixes
	}
	if p.RateLimit.ExemptPrefixes != nil {
		cfg.RateLimit.ExemptPrefixes = p.RateLimit.ExemptPrefixes
	}
	if p.RateLimit.Max > 0 && os.Getenv(envRateLimitMax) == "" {
		cfg.RateLimit.Max = p.RateLimit.Max
	}
	if p.CSRF.ExemptPrefixes != nil {
		cfg.CSRF.ExemptPrefixes = p.CSRF.ExemptPrefixes
	}

	for _, k := range p.APIKeys {
		key, err := k.resolve()
		if err != nil {
			return err
		}
		cfg.APIKeys = append(cfg.APIKeys, APIKeyConfig{Name: k.Name, Key: key, Role: k.Role})
	}
	return nil
}

func (k APIKeyPolicy) resolve() (string, error) {
	if (k.Key == "") == (k.KeyEnv == "") {
		return "", fmt.Errorf(errPolicyKeySource, k.Name)
	}
	if k.Key != "" {
		return k.Key, nil
	}
	key := os.Getenv(k.KeyEnv)
	if key == "" {
		return "", fmt.Errorf(errPolicyKeyEnvFmt, k.Name, k.KeyEnv)
	}
	return key, nil
}
