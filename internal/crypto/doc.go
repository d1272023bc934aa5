// Package crypto provides the cryptographic core of safe.
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt unless the caller supplies one
//   - 600,000 iterations by default (OWASP recommendation)
//   - 128, 192 or 256-bit keys
//
// Encryption uses AES-GCM with:
//   - 12-byte random nonce per encryption operation
//   - 16-byte authentication tag appended to the ciphertext
//   - ErrIntegrity on any authentication failure
//
// Results are returned as a Container. Containers produced by Codec (or
// PwdEncrypt) also carry the salt, iteration count and key length, so they
// can be decrypted with the passphrase alone. Containers produced by Cipher
// (or Encrypt) need the original key.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call DerivedKey.Destroy() when done with a key
package crypto
