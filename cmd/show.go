package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/illarion/safe/internal/crypto"
)

// Show prints the records of a collection. Values are masked unless reveal
// is set; JSON output always contains values.
func Show(ctx context.Context, env *Env, collection string, asJSON, reveal bool) {
	vault := env.OpenVault()
	defer vault.Close()

	password := env.unlockPassword(vault)
	defer crypto.ClearBytes(password)

	coll, err := vault.Fetch(ctx, collection, password)
	if err != nil {
		Fail(err, password)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(coll); err != nil {
			Fail(err, password)
		}
		return
	}

	if coll.Len() == 0 {
		fmt.Printf("Collection %s is empty\n", collection)
		return
	}

	for i, record := range coll.Records {
		fmt.Printf("%3d  %s\n", i, record.Name)
		for _, field := range record.Fields {
			value := "********"
			if reveal {
				value = field.Value
			}
			fmt.Printf("       %s: %s\n", field.Name, value)
		}
	}
}
