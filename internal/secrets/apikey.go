package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// "Service" groups the app's secrets in the OS keychain.
	KeyringService = "leadgenius"

	APIKeyAccount = "leadgenius:ai:api_key"

	DefaultAPIKeyEnv = "GEMINI_API_KEY"
)

var ErrNoAPIKey = errors.New("AI API key not found (set it in keychain or via env)")

// Source says where a key came from.
type Source string

const (
	SourceNone    Source = ""
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
)

// APIKeys resolves the AI backend key: keychain first, then the env var.
type APIKeys struct {
	EnvVar string
}

func NewAPIKeys(envVar string) *APIKeys {
	if strings.TrimSpace(envVar) == "" {
		envVar = DefaultAPIKeyEnv
	}
	return &APIKeys{EnvVar: envVar}
}

func (k *APIKeys) Get() (string, error) {
	key, _, err := k.Lookup()
	return key, err
}

func (k *APIKeys) Lookup() (string, Source, error) {
	// 1) Keyring first (recommended)
	v, err := keyring.Get(KeyringService, APIKeyAccount)
	if err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceKeyring, nil
	}
	// 2) Env
	if v := strings.TrimSpace(os.Getenv(k.EnvVar)); v != "" {
		return v, SourceEnv, nil
	}
	return "", SourceNone, ErrNoAPIKey
}

func (k *APIKeys) Set(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("api key is empty")
	}
	return keyring.Set(KeyringService, APIKeyAccount, strings.TrimSpace(key))
}

// Delete removes the stored key. Deleting a key that isn't there is not an error.
func (k *APIKeys) Delete() error {
	err := keyring.Delete(KeyringService, APIKeyAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
