package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	SaltSize             = 32       // Salt size in bytes
	NonceSize            = 12       // GCM nonce size
	TagSize              = 16       // GCM authentication tag size
	DefaultKeyLengthBits = 256      // AES-256
	DefaultIterations    = 600000   // PBKDF2-HMAC-SHA256 (OWASP 2023)
	MaxIterations        = 10000000 // Upper bound accepted when reading stored parameters
)

var (
	// ErrInvalidParameter is returned for out-of-range key lengths, empty
	// salts and non-positive iteration counts.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrIntegrity is returned when authentication fails. Wrong keys, wrong
	// passphrases and corrupted data are intentionally indistinguishable.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrMalformedContainer is returned for structurally invalid containers.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrMissingDerivationParams is returned when a password decryption is
	// attempted on a container produced with a raw key.
	ErrMissingDerivationParams = errors.New("container has no derivation parameters")
)

// Option configures a KDF, Cipher or Codec.
type Option func(*options)

type options struct {
	rand       io.Reader
	iterations int
	logger     *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		rand:       rand.Reader,
		iterations: DefaultIterations,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRandom replaces the random source used for salts and nonces.
// The reader must be safe for concurrent use if the instance is shared.
// Nil readers are ignored.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.rand = r
		}
	}
}

// WithIterations sets the iteration count used when a caller omits one.
// Non-positive values are ignored.
func WithIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.iterations = n
		}
	}
}

// WithLogger sets the logger used for warnings. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// readRandom reads n random bytes from r
func readRandom(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	return readRandom(rand.Reader, n)
}

// validKeyLength reports whether bits is a supported AES key size.
func validKeyLength(bits int) bool {
	switch bits {
	case 128, 192, 256:
		return true
	}
	return false
}
