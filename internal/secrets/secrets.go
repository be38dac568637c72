package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"autoapply-engine/internal/config"
)

// KeyringService groups the app's secrets in the OS keychain.
const KeyringService = "autoapply"

// Get returns the secret stored under the given keychain account, or an
// error when it is missing or blank.
func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if err != nil {
		return "", fmt.Errorf("keychain read %q: %w", account, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("keychain entry %q is empty", account)
	}
	return v, nil
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// ProviderKey fetches the API key for a letter provider. Providers with no
// key_account configured run unauthenticated and get an empty key.
func ProviderKey(p config.Provider) string {
	if p.KeyAccount == "" {
		return ""
	}
	v, err := Get(p.KeyAccount)
	if err != nil {
		return ""
	}
	return v
}

// IMAPAccount derives the keychain account for the mail password.
func IMAPAccount(cfg config.Config) string {
	return fmt.Sprintf("imap:%s@%s", cfg.Auth.IMAP.Username, cfg.Auth.IMAP.Host)
}
