package signer

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

// KeySource says where the local signer's key comes from
type KeySource struct {
	PrivateKey   string // Hex, with or without 0x
	KeystoreFile string // Encrypted JSON key file
	Password     string // Key file password; prompted for when empty
}

// Configured returns true if any key material is configured
func (k KeySource) Configured() bool {
	return k.PrivateKey != "" || k.KeystoreFile != ""
}

// PasswordPrompt reads a secret from the user
type PasswordPrompt func(label string) (string, error)

// LoadKey resolves a KeySource into a private key. ErrNotInstalled is
// returned when nothing is configured.
func LoadKey(src KeySource, prompt PasswordPrompt) (*ecdsa.PrivateKey, error) {
	if src.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(src.PrivateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		return key, nil
	}

	if src.KeystoreFile == "" {
		return nil, ErrNotInstalled
	}

	keyJSON, err := os.ReadFile(src.KeystoreFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	password := src.Password
	if password == "" {
		if prompt == nil {
			return nil, fmt.Errorf("key file %s needs a password", src.KeystoreFile)
		}
		password, err = prompt(fmt.Sprintf("Password for %s: ", src.KeystoreFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key file: %w", err)
	}
	return key.PrivateKey, nil
}

// TerminalPassword reads a password from stdin without echo
func TerminalPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}
