// Package storage provides the BBolt database interface for safe.
//
// Database structure uses three buckets:
//   - config: KDF parameters, encrypted password check, vault ID, timestamps
//   - index: Collection names, record counts, modification times (unencrypted, for ls/status)
//   - collections: Collections whose records are individually encrypted
//
// The unencrypted index bucket enables safe ls and safe status
// to work without requiring a password.
//
// Storage treats every value as opaque bytes. Encoding and encryption
// happen in package core.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
