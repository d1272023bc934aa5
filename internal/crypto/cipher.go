package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
)

// Cipher provides AES-GCM authenticated encryption under caller-held keys.
// It generates a fresh random nonce for every encryption and never accepts
// one from the caller. Safe for concurrent use.
type Cipher struct {
	rand io.Reader
}

// NewCipher creates a Cipher. Only WithRandom affects it.
func NewCipher(opts ...Option) *Cipher {
	o := newOptions(opts)
	return &Cipher{rand: o.rand}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if !validKeyLength(len(key) * 8) {
		return nil, fmt.Errorf("%w: key is %d bytes, want 16, 24 or 32", ErrInvalidParameter, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext using AES-GCM. The returned container carries
// no derivation parameters.
func (c *Cipher) Encrypt(key, plaintext []byte) (Container, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Container{}, err
	}

	nonce, err := readRandom(c.rand, NonceSize)
	if err != nil {
		return Container{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return Container{
		ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
		iv:         nonce,
	}, nil
}

// Decrypt verifies and decrypts ct. Any authentication failure is reported
// as ErrIntegrity.
func (c *Cipher) Decrypt(key []byte, ct Container) ([]byte, error) {
	if len(ct.iv) != NonceSize {
		return nil, fmt.Errorf("%w: iv is %d bytes, want %d", ErrMalformedContainer, len(ct.iv), NonceSize)
	}
	if len(ct.ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformedContainer)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, ct.iv, ct.ciphertext, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// EncryptString encrypts a UTF-8 string.
func (c *Cipher) EncryptString(key []byte, plaintext string) (Container, error) {
	return c.Encrypt(key, []byte(plaintext))
}

// DecryptString decrypts a container produced by EncryptString.
func (c *Cipher) DecryptString(key []byte, ct Container) (string, error) {
	plaintext, err := c.Decrypt(key, ct)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
