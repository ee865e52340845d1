// Package credentials resolves API keys for external services. Keys come
// from environment variables first, then the system keyring:
//   - macOS: Keychain
//   - Windows: Credential Manager
//   - Linux: Secret Service (libsecret)
//
// Environment variables win so CI and containers never need a keyring.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name used in the system keyring.
const keyringService = "meeting-insights"

// Well-known credential names.
const (
	TranscriptionAPIKey = "transcription"
	EmbeddingAPIKey     = "embedding"
)

// ErrNotStored is returned when a credential exists in neither the
// environment nor the keyring.
var ErrNotStored = errors.New("credential not stored")

// EnvVar returns the environment variable consulted for a credential name,
// e.g. "transcription" -> INSIGHTS_TRANSCRIPTION_API_KEY.
func EnvVar(name string) string {
	cleaned := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return "INSIGHTS_" + cleaned + "_API_KEY"
}

// ProviderCredential returns the credential name for an LLM provider.
func ProviderCredential(providerName string) string {
	return "provider-" + providerName
}

// Resolve returns the API key for name, env first, keyring second.
func Resolve(name string) (string, error) {
	if v := os.Getenv(EnvVar(name)); v != "" {
		return v, nil
	}

	secret, err := keyring.Get(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w (set %s or run 'insights credentials set %s')",
			name, ErrNotStored, EnvVar(name), name)
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring for %s: %w", name, err)
	}
	return secret, nil
}

// ResolveOptional is Resolve but an absent credential returns empty instead
// of an error. Keyring failures still surface.
func ResolveOptional(name string) (string, error) {
	secret, err := Resolve(name)
	if errors.Is(err, ErrNotStored) {
		return "", nil
	}
	return secret, err
}

// Store writes a credential to the system keyring.
func Store(name, secret string) error {
	if name == "" {
		return fmt.Errorf("credential name is required")
	}
	if secret == "" {
		return fmt.Errorf("credential value is required")
	}
	if err := keyring.Set(keyringService, name, secret); err != nil {
		return fmt.Errorf("storing credential %s: %w", name, err)
	}
	return nil
}

// Delete removes a credential from the system keyring.
func Delete(name string) error {
	err := keyring.Delete(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", name, ErrNotStored)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %s: %w", name, err)
	}
	return nil
}
