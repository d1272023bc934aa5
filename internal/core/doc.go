// Package core provides the safe vault operations.
//
// A vault is a single bbolt file holding named collections of records. Each
// record is encrypted on its own with AES-GCM under a key derived from the
// vault password; the derivation parameters and an encrypted password check
// live in the unencrypted config bucket.
//
// Core operations include:
//   - Init: Create a new vault with a password-derived key
//   - Fetch/Save: Decrypt and encrypt whole collections
//   - RemoveCollection: Drop a collection
//   - ChangePassword: Re-encrypt the vault under a new password and salt
//   - Export/Import: Move a collection between vaults as a self-contained
//     password-encrypted container, previewing changes as a diff
package core
