package crypto

import (
	"errors"
	"fmt"
)

// Codec combines a KDF and a Cipher so that a passphrase alone is enough to
// encrypt and later decrypt. Safe for concurrent use.
type Codec struct {
	kdf    *KDF
	cipher *Cipher
}

// NewCodec creates a Codec whose KDF and Cipher share opts.
func NewCodec(opts ...Option) *Codec {
	return &Codec{
		kdf:    NewKDF(opts...),
		cipher: NewCipher(opts...),
	}
}

// Encrypt derives a key from passphrase with a fresh salt, encrypts
// plaintext and embeds the derivation parameters in the container.
// Zero keyLengthBits selects DefaultKeyLengthBits.
func (c *Codec) Encrypt(passphrase, plaintext []byte, keyLengthBits int) (Container, error) {
	dk, err := c.kdf.Derive(passphrase, nil, keyLengthBits, 0)
	if err != nil {
		return Container{}, err
	}
	defer dk.Destroy()

	ct, err := c.cipher.Encrypt(dk.Key, plaintext)
	if err != nil {
		return Container{}, err
	}
	return ct.WithDerivationParams(dk.Params()), nil
}

// Decrypt re-derives the key from the container's parameters and decrypts.
// A wrong passphrase yields ErrIntegrity.
func (c *Codec) Decrypt(passphrase []byte, ct Container) ([]byte, error) {
	if ct.params == nil {
		if ct.IsZero() {
			return nil, fmt.Errorf("%w: empty container", ErrMalformedContainer)
		}
		return nil, ErrMissingDerivationParams
	}

	dk, err := c.kdf.DeriveParams(passphrase, *ct.params)
	if err != nil {
		if errors.Is(err, ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedContainer, err)
		}
		return nil, err
	}
	defer dk.Destroy()

	return c.cipher.Decrypt(dk.Key, ct)
}

// EncryptString encrypts a UTF-8 string under passphrase.
func (c *Codec) EncryptString(passphrase []byte, plaintext string, keyLengthBits int) (Container, error) {
	return c.Encrypt(passphrase, []byte(plaintext), keyLengthBits)
}

// DecryptString decrypts a container produced by EncryptString.
func (c *Codec) DecryptString(passphrase []byte, ct Container) (string, error) {
	plaintext, err := c.Decrypt(passphrase, ct)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// KDF returns the codec's key deriver.
func (c *Codec) KDF() *KDF {
	return c.kdf
}

// Cipher returns the codec's cipher.
func (c *Codec) Cipher() *Cipher {
	return c.cipher
}

var (
	defaultKDF    = NewKDF()
	defaultCipher = NewCipher()
	defaultCodec  = &Codec{kdf: defaultKDF, cipher: defaultCipher}
)

// DeriveKey derives a key with the default KDF. See KDF.Derive.
func DeriveKey(passphrase, salt []byte, keyLengthBits, iterations int) (*DerivedKey, error) {
	return defaultKDF.Derive(passphrase, salt, keyLengthBits, iterations)
}

// Encrypt encrypts plaintext under key with the default Cipher.
func Encrypt(key, plaintext []byte) (Container, error) {
	return defaultCipher.Encrypt(key, plaintext)
}

// Decrypt decrypts ct under key with the default Cipher.
func Decrypt(key []byte, ct Container) ([]byte, error) {
	return defaultCipher.Decrypt(key, ct)
}

// PwdEncrypt encrypts plaintext under passphrase with the default Codec.
func PwdEncrypt(passphrase, plaintext []byte, keyLengthBits int) (Container, error) {
	return defaultCodec.Encrypt(passphrase, plaintext, keyLengthBits)
}

// PwdDecrypt decrypts a container produced by PwdEncrypt.
func PwdDecrypt(passphrase []byte, ct Container) ([]byte, error) {
	return defaultCodec.Decrypt(passphrase, ct)
}
