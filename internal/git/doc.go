// Package git reports how a safe sits in a git work tree.
//
// The safe file itself is encrypted and fine to commit. The .env file the
// CLI reads settings from is plaintext and may hold SAFE_PASSWORD, so it
// should be ignored.
package git
