// Package privacy encrypts donor contact details at rest using age.
package privacy

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

var (
	// ErrInvalidKey is returned when a key is not a valid age key.
	ErrInvalidKey = errors.New("invalid key format")
	// ErrEncryptionFailed is returned when encryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrDecryptionFailed is returned when decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// prefix marks a stored value as encrypted, so plaintext written before
// encryption was enabled still reads back correctly.
const prefix = "age:"

// Config holds the age key pair. Either side may be empty.
type Config struct {
	// PublicKey encrypts on write. Format: age1... (Bech32 encoded).
	PublicKey string
	// PrivateKey decrypts on read. Format: AGE-SECRET-KEY-1...
	PrivateKey string
}

// Codec encrypts and decrypts contact fields. With no keys configured it
// degrades to passthrough, storing values as plaintext.
type Codec struct {
	recipient *age.X25519Recipient
	identity  *age.X25519Identity
	log       *logger.Logger
}

// NewCodec creates a codec from the configured keys. Missing keys are
// allowed; a codec without keys passes values through unencrypted and logs a
// warning once at startup.
func NewCodec(cfg *Config, log *logger.Logger) (*Codec, error) {
	if log == nil {
		log = logger.Default()
	}
	c := &Codec{log: log.WithComponent("privacy")}

	if cfg.PublicKey != "" {
		recipient, err := age.ParseX25519Recipient(cfg.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid public key: %v", ErrInvalidKey, err)
		}
		c.recipient = recipient
	}
	if cfg.PrivateKey != "" {
		identity, err := age.ParseX25519Identity(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private key: %v", ErrInvalidKey, err)
		}
		c.identity = identity
	}

	if c.recipient == nil {
		c.log.Warn("no age public key configured, contact details stored as plaintext")
	}

	return c, nil
}

// Enabled reports whether values are encrypted on write.
func (c *Codec) Enabled() bool {
	return c.recipient != nil
}

// Encrypt encrypts a field value for storage. Empty values and codecs
// without a public key pass through unchanged.
func (c *Codec) Encrypt(value string) (string, error) {
	if value == "" || c.recipient == nil {
		return value, nil
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, c.recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if _, err := w.Write([]byte(value)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return prefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decrypt reverses Encrypt. Values without the encryption marker are
// returned as-is, so plaintext rows from before encryption was enabled keep
// working.
func (c *Codec) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	if c.identity == nil {
		return "", fmt.Errorf("%w: no private key configured", ErrDecryptionFailed)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), c.identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}
