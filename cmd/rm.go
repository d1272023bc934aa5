package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/safe/internal/crypto"
)

// Remove deletes the records from..to (inclusive) of a collection, or the
// whole collection when no range is given
func Remove(ctx context.Context, env *Env, collection string, from, to *int) {
	vault := env.OpenVault()
	defer vault.Close()

	password := env.unlockPassword(vault)
	defer crypto.ClearBytes(password)

	if from == nil {
		if err := vault.RemoveCollection(ctx, collection, password); err != nil {
			Fail(err, password)
		}
		fmt.Printf("Removed collection %s\n", collection)

		if err := vault.Compact(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
		}
		return
	}

	coll, err := vault.Fetch(ctx, collection, password)
	if err != nil {
		Fail(err, password)
	}

	end := *from
	if to != nil {
		end = *to
	}
	before := coll.Len()
	coll.Remove(*from, end)

	if err := vault.Save(ctx, coll, password); err != nil {
		Fail(err, password)
	}
	fmt.Printf("Removed %d record(s) from %s\n", before-coll.Len(), collection)
}
