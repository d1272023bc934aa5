package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/safe/internal/core"
	"github.com/illarion/safe/internal/git"
	"github.com/illarion/safe/internal/keyring"
)

// Status shows the collections and encryption settings of the safe.
// No password is required.
func Status(ctx context.Context, env *Env) {
	vault := env.OpenVault()
	defer vault.Close()

	status, err := vault.Status(ctx)
	if errors.Is(err, core.ErrNotInitialized) {
		fmt.Printf("No safe found at %s\n", vault.Path())
		fmt.Println("Run 'safe init' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Println("Collections:")
	if len(status.Collections) == 0 {
		fmt.Println("  (none)")
	}
	for _, entry := range status.Collections {
		fmt.Printf("  %-20s %4d record(s)  %s\n", entry.Name, entry.Records, entry.Modified.Local().Format(time.DateTime))
	}

	fmt.Println()
	fmt.Printf("Safe:       %s", vault.Path())
	if info, err := os.Stat(vault.Path()); err == nil {
		fmt.Printf(" (%s)", formatSize(info.Size()))
	}
	fmt.Println()
	fmt.Printf("Modified:   %s\n", status.Modified.Local().Format(time.RFC3339))
	fmt.Printf("Encryption: %s, %d-bit key, %d iterations\n", status.Algorithm, status.KeyLengthBits, status.KDFIterations)

	keyringState := "not stored"
	if vaultID, err := vault.GetVaultID(); err == nil && keyring.HasPassword(vaultID) {
		keyringState = "stored"
	}
	fmt.Printf("Keyring:    %s\n", keyringState)

	fmt.Print(git.Format(git.Check(vault.Path()), filepath.Base(vault.Path())))
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
