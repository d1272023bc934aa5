package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/safe/internal/core"
)

// Compact compacts the safe database to reclaim unused space
func Compact(env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	info, err := os.Stat(vault.Path())
	if err != nil {
		HandleError(core.ErrNotInitialized)
	}
	sizeBefore := info.Size()

	if err := vault.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(vault.Path())
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
}
