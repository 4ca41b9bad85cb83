package secret

import (
	"os"
	"strings"
)

// SecretStore keeps backend passwords and API tokens out of the config
// file. Get returns nil and no error when a key is absent.
type SecretStore interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// EnvStore reads secrets from PAGEBUILDER_SECRET_<KEY> environment
// variables. Keys are upper-cased and non-alphanumerics become '_'.
type EnvStore struct{}

// EnvName returns the variable EnvStore consults for key.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString("PAGEBUILDER_SECRET_")
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(EnvName(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (EnvStore) Set(key string, value []byte) error {
	return os.Setenv(EnvName(key), string(value))
}

func (EnvStore) Delete(key string) error {
	return os.Unsetenv(EnvName(key))
}

// Chain asks each store in turn and returns the first non-empty value.
// Writes go to the first store.
type Chain []SecretStore

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

func (c Chain) Set(key string, value []byte) error {
	if len(c) == 0 {
		return nil
	}
	return c[0].Set(key, value)
}

func (c Chain) Delete(key string) error {
	for _, s := range c {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Default is the keychain on macOS with the environment as fallback, and
// the environment alone elsewhere.
func Default() SecretStore {
	if keychainAvailable() {
		return Chain{NewKeychainStore(), EnvStore{}}
	}
	return EnvStore{}
}
