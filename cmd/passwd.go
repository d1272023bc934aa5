package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/safe/internal/core"
	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/keyring"
)

// Passwd changes the password of the safe
func Passwd(ctx context.Context, env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	// Get vault ID for keyring lookup
	vaultID, _ := vault.GetVaultID()

	currentPassword, _, err := env.GetPasswordWithRetry("Enter current password: ", vaultID, vault.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	// SAFE_PASSWORD only ever supplies the current password
	newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
	if err != nil {
		Fail(err, currentPassword)
	}
	defer crypto.ClearBytes(newPassword)

	if err := vault.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		Fail(err, currentPassword, newPassword)
	}

	// Keep an existing keyring entry in sync
	if vaultID != "" && keyring.HasPassword(vaultID) {
		if err := keyring.SavePassword(vaultID, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Compact database after rewriting all data
	if err := vault.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("✓ Password changed successfully")
}
