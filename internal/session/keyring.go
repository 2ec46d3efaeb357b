package session

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "gradefresh-cli"

// KeyringStorage keeps keys in the OS keychain/credential manager
type KeyringStorage struct {
	service string
}

// NewKeyringStorage uses the default service name
func NewKeyringStorage() *KeyringStorage {
	return &KeyringStorage{service: keyringService}
}

func (k *KeyringStorage) Get(key string) (string, bool) {
	v, err := keyring.Get(k.service, key)
	if err != nil {
		return "", false
	}
	return v, true
}

func (k *KeyringStorage) Set(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (k *KeyringStorage) Remove(key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
