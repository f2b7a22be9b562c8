// Package secret keeps the backup passphrase in the OS keyring so it does
// not have to live in the environment.
package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "progresspoint"
	account = "backup-passphrase"
)

var (
	ErrNotFound    = errors.New("passphrase not found in keyring")
	ErrUnavailable = errors.New("OS keyring is not available")
)

func Passphrase() (string, error) {
	p, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return p, nil
}

func SetPassphrase(p string) error {
	if p == "" {
		return errors.New("passphrase cannot be empty")
	}
	if err := keyring.Set(service, account, p); err != nil {
		return fmt.Errorf("store passphrase in keyring: %w", err)
	}
	return nil
}

// ClearPassphrase removes the stored passphrase. Clearing an absent entry is
// not an error.
func ClearPassphrase() error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete passphrase from keyring: %w", err)
	}
	return nil
}

// Resolve returns explicit when set and otherwise falls back to the keyring.
// A missing or unavailable keyring yields "" so backups stay disabled.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	p, err := Passphrase()
	if err != nil {
		return ""
	}
	return p
}
