package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/illarion/safe/internal/crypto"
)

// maxInput bounds what encrypt/decrypt read from stdin
const maxInput = 64 << 20

func readInput(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInput+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) > maxInput {
		return nil, fmt.Errorf("input larger than %s", formatSize(maxInput))
	}
	return data, nil
}

// Encrypt reads plaintext from in and writes a password-encrypted container
// as JSON to out. It does not need a safe.
func Encrypt(env *Env, in io.Reader, out io.Writer) {
	plaintext, err := readInput(in)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(plaintext)

	password, err := env.GetPasswordForInit("Enter password: ")
	if err != nil {
		Fail(err, plaintext)
	}
	defer crypto.ClearBytes(password)

	ct, err := env.Codec().Encrypt(password, plaintext, env.Config.KeyLengthBits)
	if err != nil {
		Fail(err, password, plaintext)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ct); err != nil {
		Fail(err, password, plaintext)
	}
}

// Decrypt reads a container as JSON from in and writes the plaintext to out
func Decrypt(env *Env, in io.Reader, out io.Writer) {
	data, err := readInput(in)
	if err != nil {
		HandleError(err)
	}

	ct, err := crypto.ParseContainer(data)
	if err != nil {
		HandleError(err)
	}

	password, err := env.GetPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	plaintext, err := env.Codec().Decrypt(password, ct)
	if err != nil {
		Fail(err, password)
	}
	defer crypto.ClearBytes(plaintext)

	if _, err := out.Write(plaintext); err != nil {
		Fail(err, password, plaintext)
	}
}
