package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/core"
	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/keyring"
	"github.com/illarion/safe/internal/security"
)

// PasswordSource records where a password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

// Env carries the loaded configuration and logger into every command
type Env struct {
	Config *config.Config
	Logger *slog.Logger
}

// Codec builds the crypto codec described by the configuration
func (e *Env) Codec() *crypto.Codec {
	return crypto.NewCodec(
		crypto.WithIterations(e.Config.KDFIterations),
		crypto.WithLogger(e.Logger),
	)
}

// OpenVault creates the Vault at the configured path or exits
func (e *Env) OpenVault() *core.Vault {
	vault, err := core.New(e.Config.Path,
		core.WithCodec(e.Codec()),
		core.WithKeyLength(e.Config.KeyLengthBits),
		core.WithLogger(e.Logger),
	)
	if err != nil {
		HandleError(err)
	}
	return vault
}

// GetPassword retrieves password from the environment or prompts the user.
// The caller is responsible for calling crypto.ClearBytes on the returned password.
func (e *Env) GetPassword(prompt string) ([]byte, error) {
	if password := e.Config.PasswordBytes(); password != nil {
		return password, nil
	}
	return core.ReadPassword(prompt)
}

// GetPasswordForInit reads a new password from the environment, or prompts
// twice for it
func (e *Env) GetPasswordForInit(prompt string) ([]byte, error) {
	if password := e.Config.PasswordBytes(); password != nil {
		return password, nil
	}
	return core.ReadPasswordConfirm(prompt)
}

// GetPasswordWithRetry tries SAFE_PASSWORD, then the OS keyring, then a
// prompt. A keyring entry that fails verify is reported as stale and the
// user is prompted instead.
func (e *Env) GetPasswordWithRetry(prompt, vaultID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := e.Config.PasswordBytes(); password != nil {
		return password, SourceEnv, nil
	}

	stale := false
	if vaultID != "" {
		password, err := keyring.GetPassword(vaultID)
		switch {
		case err == nil:
			verr := verify(password)
			if verr == nil {
				e.Logger.Debug("using password from keyring", "vault", vaultID)
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(verr, core.ErrWrongPassword) {
				return nil, SourceKeyring, verr
			}
			stale = true
			fmt.Fprintln(os.Stderr, "Password in keyring is out of date")
		case !errors.Is(err, keyring.ErrNotFound):
			e.Logger.Warn("keyring unavailable", "error", err)
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if stale {
		if err := verify(password); err != nil {
			crypto.ClearBytes(password)
			return nil, SourcePrompt, err
		}
		OfferToSavePassword(vaultID, password)
	}
	return password, SourcePrompt, nil
}

// OfferToSavePassword asks whether to store password in the keyring. Only
// asked on an interactive terminal.
func OfferToSavePassword(vaultID string, password []byte) {
	if vaultID == "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	if !core.Confirm(os.Stdin, "Update password in keyring?") {
		return
	}
	if err := keyring.SavePassword(vaultID, password); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Keyring updated")
}

// unlockPassword looks up the vault ID and returns a verified password or exits
func (e *Env) unlockPassword(vault *core.Vault) []byte {
	vaultID, _ := vault.GetVaultID()
	password, _, err := e.GetPasswordWithRetry("Enter password: ", vaultID, vault.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	return password
}

// exit terminates the process; replaced in tests
var exit = os.Exit

// Fail zeroes secrets and then reports err like HandleError. Deferred
// calls do not run on exit, so commands holding a password or plaintext
// fail through here.
func Fail(err error, secrets ...[]byte) {
	for _, s := range secrets {
		crypto.ClearBytes(s)
	}
	HandleError(err)
}

// HandleError prints err in user terms and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: safe not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'safe init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: safe already exists\n")
		fmt.Fprintf(os.Stderr, "Use 'safe status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: wrong password\n")
	case errors.Is(err, crypto.ErrIntegrity):
		fmt.Fprintf(os.Stderr, "Error: wrong password or corrupted data\n")
	case errors.Is(err, crypto.ErrMissingDerivationParams):
		fmt.Fprintf(os.Stderr, "Error: container was not encrypted with a password\n")
	case errors.Is(err, crypto.ErrMalformedContainer):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	case errors.Is(err, security.ErrPathEscapes), errors.Is(err, security.ErrAbsolutePath):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Files must be inside the directory containing the safe\n")
	case errors.Is(err, config.ErrParsingConfig), errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Check SAFE_* environment variables and .env\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	exit(1)
}

// Fatalf prints a usage error and exits
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exit(1)
}
