package cmd

import (
	"fmt"

	"github.com/illarion/safe/internal/crypto"
)

// Init creates a new safe at the configured path
func Init(env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	password, err := env.GetPasswordForInit("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := vault.Init(password); err != nil {
		Fail(err, password)
	}

	fmt.Printf("✓ Initialized %s\n", vault.Path())
}
