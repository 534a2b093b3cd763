// Package service holds the webhook engine's outbound collaborators: the
// signed HTTP sender and the cipher protecting signing secrets at rest.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	// Register keeper drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// SecretPrefix marks generated signing secrets.
const SecretPrefix = "whsec_"

const encryptedPrefix = "enc:"

// GenerateSecret returns a new random signing secret.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	return SecretPrefix + hex.EncodeToString(b), nil
}

// SecretCipher converts signing secrets to and from their stored form. Without
// a keeper secrets are stored as-is.
type SecretCipher struct {
	keeper *secrets.Keeper
}

// OpenSecretCipher opens the keeper at keeperURI (base64key://, hashivault://,
// awskms://, gcpkms://, azurekeyvault://). An empty URI yields a passthrough cipher.
func OpenSecretCipher(ctx context.Context, keeperURI string) (*SecretCipher, error) {
	if keeperURI == "" {
		return &SecretCipher{}, nil
	}
	keeper, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret keeper: %w", err)
	}
	return &SecretCipher{keeper: keeper}, nil
}

// NewSecretCipher wraps an already opened keeper. A nil keeper yields a passthrough cipher.
func NewSecretCipher(keeper *secrets.Keeper) *SecretCipher {
	return &SecretCipher{keeper: keeper}
}

// Encrypt returns the stored form of secret.
func (c *SecretCipher) Encrypt(ctx context.Context, secret string) (string, error) {
	if c.keeper == nil {
		return secret, nil
	}
	ciphertext, err := c.keeper.Encrypt(ctx, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt webhook secret: %w", err)
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt returns the plaintext of a stored secret. Values stored before a
// keeper was configured are returned unchanged.
func (c *SecretCipher) Decrypt(ctx context.Context, stored string) (string, error) {
	encoded, encrypted := strings.CutPrefix(stored, encryptedPrefix)
	if !encrypted {
		return stored, nil
	}
	if c.keeper == nil {
		return "", fmt.Errorf("webhook secret is encrypted but no keeper is configured")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode webhook secret: %w", err)
	}
	plaintext, err := c.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt webhook secret: %w", err)
	}
	return string(plaintext), nil
}

// Close releases the keeper.
func (c *SecretCipher) Close() error {
	if c.keeper == nil {
		return nil
	}
	return c.keeper.Close()
}
