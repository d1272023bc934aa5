package crypto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/safe/internal/crypto"
)

func TestContainerJSONShape(t *testing.T) {
	t.Parallel()
	codec := crypto.NewCodec(crypto.WithIterations(testIterations))

	ct, err := codec.EncryptString([]byte("password"), "Hello World!", 256)
	require.NoError(t, err)

	data, err := json.Marshal(ct)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.IsType(t, "", raw["ciphertext"])
	assert.IsType(t, "", raw["iv"])
	params, ok := raw["derivationParams"].(map[string]any)
	require.True(t, ok)
	assert.IsType(t, "", params["salt"])
	assert.Equal(t, float64(testIterations), params["iterations"])
	assert.Equal(t, float64(256), params["keyLengthBits"])

	parsed, err := crypto.ParseContainer(data)
	require.NoError(t, err)
	pt, err := codec.DecryptString([]byte("password"), parsed)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", pt)
}

func TestContainerJSONWithoutParams(t *testing.T) {
	t.Parallel()
	key := testKey(t, 256)

	ct, err := crypto.Encrypt(key, []byte("raw"))
	require.NoError(t, err)

	data, err := json.Marshal(ct)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "derivationParams")

	var parsed crypto.Container
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.False(t, parsed.HasDerivationParams())

	pt, err := crypto.Decrypt(key, parsed)
	require.NoError(t, err)
	assert.Equal(t, "raw", string(pt))
}

func TestContainerJSONMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing iv", `{"ciphertext":"AAAAAAAAAAAAAAAAAAAAAA=="}`},
		{"missing ciphertext", `{"iv":"AAAAAAAAAAAAAAAA"}`},
		{"bad base64", `{"ciphertext":"!!!","iv":"AAAAAAAAAAAAAAAA"}`},
		{"short iv", `{"ciphertext":"AAAAAAAAAAAAAAAAAAAAAA==","iv":"AAAA"}`},
		{"short ciphertext", `{"ciphertext":"AAAA","iv":"AAAAAAAAAAAAAAAA"}`},
		{"bad salt", `{"ciphertext":"AAAAAAAAAAAAAAAAAAAAAA==","iv":"AAAAAAAAAAAAAAAA","derivationParams":{"salt":"%%","iterations":1,"keyLengthBits":256}}`},
		{"empty salt", `{"ciphertext":"AAAAAAAAAAAAAAAAAAAAAA==","iv":"AAAAAAAAAAAAAAAA","derivationParams":{"salt":"","iterations":1,"keyLengthBits":256}}`},
		{"zero iterations", `{"ciphertext":"AAAAAAAAAAAAAAAAAAAAAA==","iv":"AAAAAAAAAAAAAAAA","derivationParams":{"salt":"AAAA","iterations":0,"keyLengthBits":256}}`},
		{"bad key length", `{"ciphertext":"AAAAAAAAAAAAAAAAAAAAAA==","iv":"AAAAAAAAAAAAAAAA","derivationParams":{"salt":"AAAA","iterations":1,"keyLengthBits":100}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := crypto.ParseContainer([]byte(tt.data))
			require.ErrorIs(t, err, crypto.ErrMalformedContainer)
		})
	}

	_, err := json.Marshal(crypto.Container{})
	require.ErrorIs(t, err, crypto.ErrMalformedContainer)
}

func TestContainerImmutable(t *testing.T) {
	t.Parallel()
	ciphertext := make([]byte, crypto.TagSize+4)
	iv := make([]byte, crypto.NonceSize)
	params := &crypto.DerivationParams{Salt: []byte{1, 2, 3, 4}, Iterations: 10, KeyLengthBits: 128}

	ct, err := crypto.NewContainer(ciphertext, iv, params)
	require.NoError(t, err)

	ciphertext[0] = 0xff
	iv[0] = 0xff
	params.Salt[0] = 0xff
	assert.Equal(t, byte(0), ct.Ciphertext()[0])
	assert.Equal(t, byte(0), ct.IV()[0])
	got, ok := ct.DerivationParams()
	require.True(t, ok)
	assert.Equal(t, byte(1), got.Salt[0])

	got.Salt[0] = 0xee
	again, _ := ct.DerivationParams()
	assert.Equal(t, byte(1), again.Salt[0])

	bare, err := crypto.NewContainer(ct.Ciphertext(), ct.IV(), nil)
	require.NoError(t, err)
	with := bare.WithDerivationParams(*params)
	assert.False(t, bare.HasDerivationParams())
	assert.True(t, with.HasDerivationParams())
}
