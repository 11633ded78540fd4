package config

import "fmt"

const (
	errRequiredEnvNotSetFmt = "required environment variable %s is not set"
	errOneOfFmt             = "%s must be %q or %q, got %q"
)

type messageBuilders struct {
	requiredEnvNotSet func(string) string
	secretTooShort    func(name string, minLength int) string
	secretLowEntropy  func(name string) string
	oneOf             func(name, a, b, got string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		requiredEnvNotSet: func(key string) string {
			return fmt.Sprintf(errRequiredEnvNotSetFmt, key)
		},
		secretTooShort: func(name string, minLength int) string {
			return fmt.Sprintf(errSecretMinLengthFmt, name, minLength)
		},
		secretLowEntropy: func(name string) string {
			return fmt.Sprintf(errSecretLowEntropyFmt, name)
		},
		oneOf: func(name, a, b, got string) string {
			return fmt.Sprintf(errOneOfFmt, name, a, b, got)
		},
	}
}

var messages = newMessageBuilders()
