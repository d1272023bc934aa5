package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/keyring"
)

// KeyringSave saves the password to the OS keyring
func KeyringSave(env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	password, err := env.GetPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := vault.VerifyPassword(password); err != nil {
		Fail(err, password)
	}

	vaultID, err := vault.GetOrCreateVaultID()
	if err != nil {
		Fail(err, password)
	}

	if err := keyring.SavePassword(vaultID, password); err != nil {
		Fail(fmt.Errorf("failed to save to keyring: %w", err), password)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the password from the OS keyring
func KeyringDelete(env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	vaultID, err := vault.GetVaultID()
	if err != nil || !keyring.HasPassword(vaultID) {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := keyring.DeletePassword(vaultID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to remove from keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus(env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	vaultID, err := vault.GetVaultID()
	if err == nil && keyring.HasPassword(vaultID) {
		fmt.Println("Password: stored in keyring")
		return
	}
	fmt.Println("Password: not stored")
}
