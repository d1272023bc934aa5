package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"
)

// DerivedKey is a key derived from a passphrase together with the
// parameters needed to derive it again.
type DerivedKey struct {
	Key           []byte `json:"-"`
	Salt          []byte `json:"salt"`
	KeyLengthBits int    `json:"keyLengthBits"`
	Iterations    int    `json:"iterations"`
}

// Params returns the parameters that reproduce this key.
func (k *DerivedKey) Params() DerivationParams {
	return DerivationParams{
		Salt:          append([]byte(nil), k.Salt...),
		Iterations:    k.Iterations,
		KeyLengthBits: k.KeyLengthBits,
	}
}

// Destroy clears the key material from memory
func (k *DerivedKey) Destroy() {
	ClearBytes(k.Key)
}

// String never includes the key material.
func (k *DerivedKey) String() string {
	return fmt.Sprintf("DerivedKey{bits=%d iterations=%d key=REDACTED}", k.KeyLengthBits, k.Iterations)
}

// LogValue implements slog.LogValuer.
func (k *DerivedKey) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("key_length_bits", k.KeyLengthBits),
		slog.Int("iterations", k.Iterations),
		slog.String("key", "REDACTED"),
	)
}

// KDF derives keys from passphrases with PBKDF2-HMAC-SHA256.
// It holds only configuration and is safe for concurrent use.
type KDF struct {
	rand       io.Reader
	iterations int
	logger     *slog.Logger
}

// NewKDF creates a KDF. Without options it uses crypto/rand for salts and
// DefaultIterations as the work factor.
func NewKDF(opts ...Option) *KDF {
	o := newOptions(opts)
	return &KDF{
		rand:       o.rand,
		iterations: o.iterations,
		logger:     o.logger,
	}
}

// Iterations returns the work factor used when a caller omits one.
func (k *KDF) Iterations() int {
	return k.iterations
}

// Derive derives a key from passphrase.
//
// A nil salt makes Derive generate SaltSize random bytes; a non-nil empty
// salt is rejected. Zero keyLengthBits selects DefaultKeyLengthBits and zero
// iterations selects the KDF's configured work factor. Identical inputs
// always produce an identical key.
func (k *KDF) Derive(passphrase, salt []byte, keyLengthBits, iterations int) (*DerivedKey, error) {
	if keyLengthBits == 0 {
		keyLengthBits = DefaultKeyLengthBits
	}
	if !validKeyLength(keyLengthBits) {
		return nil, fmt.Errorf("%w: key length %d bits, want 128, 192 or 256", ErrInvalidParameter, keyLengthBits)
	}

	if iterations == 0 {
		iterations = k.iterations
	}
	if iterations < 0 || iterations > MaxIterations {
		return nil, fmt.Errorf("%w: iterations %d out of range", ErrInvalidParameter, iterations)
	}

	switch {
	case salt == nil:
		generated, err := readRandom(k.rand, SaltSize)
		if err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		salt = generated
	case len(salt) == 0:
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidParameter)
	default:
		salt = append([]byte(nil), salt...)
	}

	if len(passphrase) == 0 {
		k.logger.Warn("deriving key from empty passphrase, the key is predictable")
	}

	key := pbkdf2.Key(passphrase, salt, iterations, keyLengthBits/8, sha256.New)

	return &DerivedKey{
		Key:           key,
		Salt:          salt,
		KeyLengthBits: keyLengthBits,
		Iterations:    iterations,
	}, nil
}

// DeriveParams re-derives a key from stored parameters.
func (k *KDF) DeriveParams(passphrase []byte, p DerivationParams) (*DerivedKey, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return k.Derive(passphrase, p.Salt, p.KeyLengthBits, p.Iterations)
}
