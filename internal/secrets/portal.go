// Package secrets keeps portal passwords in the OS keychain. Credentials
// never touch the database; profiles store only the portal username.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "applyflow"
)

func portalAccount(userID int64) string {
	return fmt.Sprintf("applyflow:portal:%d", userID)
}

// Keyring satisfies run.SecretSource.
type Keyring struct{}

func (Keyring) PortalPassword(userID int64) (string, error) {
	pw, err := keyring.Get(KeyringService, portalAccount(userID))
	if err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	return "", fmt.Errorf("portal password for user %d not found in keychain", userID)
}

func SetPortalPassword(userID int64, password string) error {
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, portalAccount(userID), password)
}

func DeletePortalPassword(userID int64) error {
	return keyring.Delete(KeyringService, portalAccount(userID))
}
