package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/safe/internal/core"
	"github.com/illarion/safe/internal/crypto"
)

// Export writes a collection to file, encrypted with the safe password
func Export(ctx context.Context, env *Env, collection, file string) {
	vault := env.OpenVault()
	defer vault.Close()

	password := env.unlockPassword(vault)
	defer crypto.ClearBytes(password)

	if err := vault.Export(ctx, collection, password, file); err != nil {
		Fail(err, password)
	}
	fmt.Printf("✓ Exported %s to %s\n", collection, file)
}

// Import replaces a collection with the contents of an export. The change
// is shown as a diff and confirmed unless yes is set.
func Import(ctx context.Context, env *Env, collection, file string, yes, reveal bool) {
	vault := env.OpenVault()
	defer vault.Close()

	password := env.unlockPassword(vault)
	defer crypto.ClearBytes(password)

	plan, err := vault.Import(ctx, collection, password, file)
	if err != nil {
		Fail(err, password)
	}

	if !plan.Changed() {
		fmt.Printf("%s is already up to date\n", collection)
		return
	}

	if diff := plan.Diff(reveal); diff != "" {
		fmt.Print(diff)
	} else {
		fmt.Println("Only field values differ (use --reveal to show them)")
	}

	if !yes && !core.Confirm(os.Stdin, fmt.Sprintf("Replace %s?", collection)) {
		fmt.Println("Import cancelled")
		return
	}

	if err := vault.Apply(ctx, plan, password); err != nil {
		Fail(err, password)
	}
	fmt.Printf("✓ Imported %d record(s) into %s\n", plan.Incoming.Len(), collection)
}
