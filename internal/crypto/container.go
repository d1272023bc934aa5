package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DerivationParams are the inputs, besides the passphrase, that reproduce a
// derived key.
type DerivationParams struct {
	Salt          []byte `json:"salt"`
	Iterations    int    `json:"iterations"`
	KeyLengthBits int    `json:"keyLengthBits"`
}

// Validate checks that p could have been produced by a KDF.
func (p DerivationParams) Validate() error {
	if len(p.Salt) == 0 {
		return fmt.Errorf("%w: empty salt", ErrInvalidParameter)
	}
	if p.Iterations <= 0 || p.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations %d out of range", ErrInvalidParameter, p.Iterations)
	}
	if !validKeyLength(p.KeyLengthBits) {
		return fmt.Errorf("%w: key length %d bits", ErrInvalidParameter, p.KeyLengthBits)
	}
	return nil
}

func (p DerivationParams) clone() DerivationParams {
	p.Salt = append([]byte(nil), p.Salt...)
	return p
}

// Container is one encrypted payload. It is immutable: accessors return
// copies and WithDerivationParams returns a new value.
type Container struct {
	ciphertext []byte
	iv         []byte
	params     *DerivationParams
}

// NewContainer builds a Container from its parts. The ciphertext must at
// least hold a GCM tag and the IV must be NonceSize bytes.
func NewContainer(ciphertext, iv []byte, params *DerivationParams) (Container, error) {
	if len(iv) != NonceSize {
		return Container{}, fmt.Errorf("%w: iv is %d bytes, want %d", ErrMalformedContainer, len(iv), NonceSize)
	}
	if len(ciphertext) < TagSize {
		return Container{}, fmt.Errorf("%w: ciphertext too short", ErrMalformedContainer)
	}

	c := Container{
		ciphertext: append([]byte(nil), ciphertext...),
		iv:         append([]byte(nil), iv...),
	}
	if params != nil {
		if err := params.Validate(); err != nil {
			return Container{}, fmt.Errorf("%w: %w", ErrMalformedContainer, err)
		}
		p := params.clone()
		c.params = &p
	}
	return c, nil
}

// Ciphertext returns a copy of the encrypted payload including the GCM tag.
func (c Container) Ciphertext() []byte {
	return append([]byte(nil), c.ciphertext...)
}

// IV returns a copy of the nonce.
func (c Container) IV() []byte {
	return append([]byte(nil), c.iv...)
}

// DerivationParams returns the embedded parameters, if any.
func (c Container) DerivationParams() (DerivationParams, bool) {
	if c.params == nil {
		return DerivationParams{}, false
	}
	return c.params.clone(), true
}

// HasDerivationParams reports whether the container can be decrypted with
// only a passphrase.
func (c Container) HasDerivationParams() bool {
	return c.params != nil
}

// IsZero reports whether c is the zero Container.
func (c Container) IsZero() bool {
	return c.ciphertext == nil && c.iv == nil && c.params == nil
}

// WithDerivationParams returns a copy of c carrying p.
func (c Container) WithDerivationParams(p DerivationParams) Container {
	p = p.clone()
	return Container{
		ciphertext: c.Ciphertext(),
		iv:         c.IV(),
		params:     &p,
	}
}

type paramsJSON struct {
	Salt          string `json:"salt"`
	Iterations    int    `json:"iterations"`
	KeyLengthBits int    `json:"keyLengthBits"`
}

type containerJSON struct {
	Ciphertext       string      `json:"ciphertext"`
	IV               string      `json:"iv"`
	DerivationParams *paramsJSON `json:"derivationParams,omitempty"`
}

// MarshalJSON encodes byte fields as standard base64.
func (c Container) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return nil, fmt.Errorf("%w: empty container", ErrMalformedContainer)
	}

	out := containerJSON{
		Ciphertext: base64.StdEncoding.EncodeToString(c.ciphertext),
		IV:         base64.StdEncoding.EncodeToString(c.iv),
	}
	if c.params != nil {
		out.DerivationParams = &paramsJSON{
			Salt:          base64.StdEncoding.EncodeToString(c.params.Salt),
			Iterations:    c.params.Iterations,
			KeyLengthBits: c.params.KeyLengthBits,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and validates a container. All failures match
// ErrMalformedContainer.
func (c *Container) UnmarshalJSON(data []byte) error {
	var in containerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedContainer, err)
	}
	if in.Ciphertext == "" || in.IV == "" {
		return fmt.Errorf("%w: missing ciphertext or iv", ErrMalformedContainer)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(in.Ciphertext)
	if err != nil {
		return fmt.Errorf("%w: ciphertext: %w", ErrMalformedContainer, err)
	}
	iv, err := base64.StdEncoding.DecodeString(in.IV)
	if err != nil {
		return fmt.Errorf("%w: iv: %w", ErrMalformedContainer, err)
	}

	var params *DerivationParams
	if in.DerivationParams != nil {
		salt, err := base64.StdEncoding.DecodeString(in.DerivationParams.Salt)
		if err != nil {
			return fmt.Errorf("%w: salt: %w", ErrMalformedContainer, err)
		}
		params = &DerivationParams{
			Salt:          salt,
			Iterations:    in.DerivationParams.Iterations,
			KeyLengthBits: in.DerivationParams.KeyLengthBits,
		}
	}

	parsed, err := NewContainer(ciphertext, iv, params)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseContainer decodes a container from its JSON form.
func ParseContainer(data []byte) (Container, error) {
	var c Container
	if err := c.UnmarshalJSON(data); err != nil {
		return Container{}, err
	}
	return c, nil
}
