// Package secrets reads the per-environment secret-source file and decrypts
// age-encrypted values. Encrypted values carry the "age:" prefix followed by
// base64 ciphertext; anything else passes through as plaintext.
package secrets

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/joho/godotenv"
	"github.com/ragstack/ragctl/internal/constants"
)

const encryptedPrefix = "age:"

// GetAgeIdentity parses the X25519 identity from the environment.
func GetAgeIdentity() (*age.X25519Identity, error) {
	identityStr := os.Getenv(constants.EnvVarAgeIdentity)
	if identityStr == "" {
		return nil, fmt.Errorf("environment variable %s is not set", constants.EnvVarAgeIdentity)
	}
	identity, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse age identity from %s: %w", constants.EnvVarAgeIdentity, err)
	}
	return identity, nil
}

// Encrypt encrypts a plaintext value for the recipient and encodes it for
// storage in a secret-source file.
func Encrypt(value string, recipient age.Recipient) (string, error) {
	var rawBuffer bytes.Buffer
	encryptWriter, err := age.Encrypt(&rawBuffer, recipient)
	if err != nil {
		return "", fmt.Errorf("failed to initialize encryptor: %w", err)
	}
	if _, err := io.WriteString(encryptWriter, value); err != nil {
		return "", fmt.Errorf("failed to write value to encryption writer: %w", err)
	}
	if err := encryptWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to close encryption writer: %w", err)
	}
	return encryptedPrefix + base64.StdEncoding.EncodeToString(rawBuffer.Bytes()), nil
}

// Decrypt decodes and decrypts a stored value produced by Encrypt.
func Decrypt(stored string, identity age.Identity) (string, error) {
	encoded := strings.TrimPrefix(stored, encryptedPrefix)
	encryptedBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 secret: %w", err)
	}
	decryptReader, err := age.Decrypt(bytes.NewReader(encryptedBytes), identity)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	var decrypted bytes.Buffer
	if _, err := io.Copy(&decrypted, decryptReader); err != nil {
		return "", fmt.Errorf("failed to read decrypted value: %w", err)
	}
	return decrypted.String(), nil
}

// IsEncrypted reports whether a stored value needs decryption.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix)
}

// ReadSecretsFile loads the secret-source file and returns fully resolved
// key/value pairs. The age identity is only required when at least one value
// is encrypted. A missing file is an error: the caller treats the secret
// source as mandatory.
func ReadSecretsFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("secret source file %s: %w", path, err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secret source file %s: %w", path, err)
	}

	var identity age.Identity
	for key, value := range values {
		if !IsEncrypted(value) {
			continue
		}
		if identity == nil {
			identity, err = GetAgeIdentity()
			if err != nil {
				return nil, err
			}
		}
		plaintext, err := Decrypt(value, identity)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt secret %s: %w", key, err)
		}
		values[key] = plaintext
	}
	return values, nil
}
