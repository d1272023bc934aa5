package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/illarion/safe/cmd"
	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
		return
	case "completion":
		runCompletion(os.Args[2:])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		cmd.HandleError(err)
	}
	level, _ := cfg.Level()
	env := &cmd.Env{
		Config: cfg,
		Logger: logger.New(
			logger.WithLevel(level),
			logger.WithFormat(logger.Format(strings.ToLower(cfg.LogFormat))),
		),
	}

	switch os.Args[1] {
	case "init":
		runInit(env, os.Args[2:])
	case "add":
		runAdd(ctx, env, os.Args[2:])
	case "show":
		runShow(ctx, env, os.Args[2:])
	case "rm":
		runRm(ctx, env, os.Args[2:])
	case "ls", "status":
		runStatus(ctx, env, os.Args[2:])
	case "passwd":
		runPasswd(ctx, env, os.Args[2:])
	case "encrypt":
		runEncrypt(env, os.Args[2:])
	case "decrypt":
		runDecrypt(env, os.Args[2:])
	case "export":
		runExport(ctx, env, os.Args[2:])
	case "import":
		runImport(ctx, env, os.Args[2:])
	case "compact":
		runCompact(env, os.Args[2:])
	case "keyring":
		runKeyring(env, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parseArgs parses flags that may appear anywhere among the positional
// arguments, exiting on a bad flag.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	positional, err := splitArgs(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return positional
}

// splitArgs sets the flags in args and returns the positional arguments.
// Negative numbers such as record indexes are positional, unless they are
// the value of a flag. Everything after "--" is positional.
func splitArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		end := nextNegative(fs, args)
		if err := fs.Parse(args[:end]); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := end - len(rest); consumed > 0 && args[consumed-1] == "--" {
			positional = append(positional, rest...)
			return append(positional, args[end:]...), nil
		}
		switch {
		case len(rest) > 0:
			positional = append(positional, rest[0])
			args = slices.Concat(rest[1:], args[end:])
		case end < len(args):
			positional = append(positional, args[end])
			args = args[end+1:]
		default:
			return positional, nil
		}
	}
}

// nextNegative returns the index of the first negative number in args that
// is not a flag value, or len(args).
func nextNegative(fs *flag.FlagSet, args []string) int {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if isNegativeNumber(arg) {
			return i
		}
		if strings.HasPrefix(arg, "-") && takesValue(fs, arg) {
			i++
		}
	}
	return len(args)
}

func isNegativeNumber(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// takesValue reports whether arg is a defined non-boolean flag whose value
// is the next argument
func takesValue(fs *flag.FlagSet, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
		return false
	}
	return true
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// requireArgs exits with usage unless lo <= len(args) <= hi. A negative hi
// means no upper bound.
func requireArgs(args []string, lo, hi int, usage string) {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}

func parseIndex(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		cmd.Fatalf("invalid index %q", s)
	}
	return n
}

func runInit(env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	requireArgs(parseArgs(fs, args), 0, 0, "safe init")

	cmd.Init(env)
}

func runAdd(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	at := fs.Int("at", 0, "Insert position for a new record (negative counts from the end)")
	rest := parseArgs(fs, args)
	requireArgs(rest, 2, -1, "safe add <collection> <name> [field=value...] [--at N]")

	var index *int
	if isFlagSet(fs, "at") {
		index = at
	}
	cmd.Add(ctx, env, rest[0], rest[1], rest[2:], index)
}

func runShow(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the collection as JSON")
	reveal := fs.Bool("reveal", false, "Show field values")
	rest := parseArgs(fs, args)
	requireArgs(rest, 1, 1, "safe show <collection> [--json] [--reveal]")

	cmd.Show(ctx, env, rest[0], *asJSON, *reveal)
}

func runRm(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs(rest, 1, 3, "safe rm <collection> [from [to]]")

	var from, to *int
	if len(rest) > 1 {
		n := parseIndex(rest[1])
		from = &n
	}
	if len(rest) > 2 {
		n := parseIndex(rest[2])
		to = &n
	}
	cmd.Remove(ctx, env, rest[0], from, to)
}

func runStatus(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	requireArgs(parseArgs(fs, args), 0, 0, "safe status")

	cmd.Status(ctx, env)
}

func runPasswd(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	requireArgs(parseArgs(fs, args), 0, 0, "safe passwd")

	cmd.Passwd(ctx, env)
}

func runEncrypt(env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	requireArgs(parseArgs(fs, args), 0, 0, "safe encrypt < plaintext > container.json")

	cmd.Encrypt(env, os.Stdin, os.Stdout)
}

func runDecrypt(env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	requireArgs(parseArgs(fs, args), 0, 0, "safe decrypt < container.json > plaintext")

	cmd.Decrypt(env, os.Stdin, os.Stdout)
}

func runExport(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs(rest, 2, 2, "safe export <collection> <file>")

	cmd.Export(ctx, env, rest[0], rest[1])
}

func runImport(ctx context.Context, env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Replace without asking")
	reveal := fs.Bool("reveal", false, "Show field values in the diff")
	rest := parseArgs(fs, args)
	requireArgs(rest, 2, 2, "safe import <collection> <file> [--yes] [--reveal]")

	cmd.Import(ctx, env, rest[0], rest[1], *yes, *reveal)
}

func runCompact(env *cmd.Env, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	requireArgs(parseArgs(fs, args), 0, 0, "safe compact")

	cmd.Compact(env)
}

func runKeyring(env *cmd.Env, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: safe keyring <save|delete|status>")
		os.Exit(1)
	}
	switch args[0] {
	case "save":
		cmd.KeyringSave(env)
	case "delete":
		cmd.KeyringDelete(env)
	case "status":
		cmd.KeyringStatus(env)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: safe completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("safe - password-encrypted collections of secrets")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  safe <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new safe")
	fmt.Println("  add         Add or update a record in a collection")
	fmt.Println("  show        Show the records of a collection")
	fmt.Println("  rm          Remove records or a whole collection")
	fmt.Println("  ls, status  Show collections and safe status")
	fmt.Println("  passwd      Change the safe password")
	fmt.Println("  encrypt     Encrypt stdin with a password")
	fmt.Println("  decrypt     Decrypt a container read from stdin")
	fmt.Println("  export      Export a collection to a file")
	fmt.Println("  import      Import a collection from a file")
	fmt.Println("  compact     Compact the safe to reclaim disk space")
	fmt.Println("  keyring     Manage the password in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  safe init                                  # Create new safe")
	fmt.Println("  safe add web github user=octo password=x   # Store a record")
	fmt.Println("  safe show web --reveal                     # Print it")
	fmt.Println("  safe status                                # List collections")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SAFE_PASSWORD        Password (skips keyring and prompt)")
	fmt.Println("  SAFE_PATH            Safe file (default .safe)")
	fmt.Println("  SAFE_KDF_ITERATIONS  PBKDF2 iterations for new keys (default 600000)")
	fmt.Println("  SAFE_KEY_LENGTH      AES key size in bits: 128, 192, 256 (default 256)")
	fmt.Println("  SAFE_LOG_LEVEL       debug, info, warn, error (default warn)")
	fmt.Println("  SAFE_LOG_FORMAT      text or json (default text)")
	fmt.Println()
	fmt.Println("Use 'safe help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("safe init")
		fmt.Println()
		fmt.Println("Creates a safe at SAFE_PATH (default .safe).")
		fmt.Println("Prompts for a password that will be used for encryption.")
		fmt.Println("The password is not stored anywhere - you must remember it.")
	case "add":
		fmt.Println("safe add <collection> <name> [field=value...] [--at N]")
		fmt.Println()
		fmt.Println("Adds a record to a collection, creating the collection if needed.")
		fmt.Println("If a record with the same name exists its fields are updated.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --at N   Insert the new record before position N.")
		fmt.Println("           Negative values count from the end; past the end appends.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  safe add web github user=octo password=hunter2")
		fmt.Println("  safe add web mail password=x --at 0")
	case "show":
		fmt.Println("safe show <collection> [--json] [--reveal]")
		fmt.Println()
		fmt.Println("Prints the records of a collection with their positions.")
		fmt.Println("Values are masked unless --reveal is given. --json prints everything.")
	case "rm":
		fmt.Println("safe rm <collection> [from [to]]")
		fmt.Println()
		fmt.Println("Without a range, removes the whole collection.")
		fmt.Println("With a range, removes records from..to inclusive. If to is before")
		fmt.Println("from only from is removed; if to is past the end everything from")
		fmt.Println("from onwards is removed. Negative indexes are accepted as-is;")
		fmt.Println("use -- to pass anything else that starts with a dash.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  safe rm web 2        # Remove record 2")
		fmt.Println("  safe rm web 2 4      # Remove records 2, 3 and 4")
		fmt.Println("  safe rm web 2 -1     # Remove record 2 only")
		fmt.Println("  safe rm web          # Remove collection")
	case "ls", "status":
		fmt.Println("safe status")
		fmt.Println()
		fmt.Println("Lists collections with record counts and shows encryption settings.")
		fmt.Println("Does not require a password.")
	case "passwd":
		fmt.Println("safe passwd")
		fmt.Println()
		fmt.Println("Changes the password. Every record is re-encrypted under a key")
		fmt.Println("derived from the new password with a fresh salt.")
	case "encrypt":
		fmt.Println("safe encrypt < plaintext > container.json")
		fmt.Println()
		fmt.Println("Encrypts stdin with a password. The JSON container carries the salt,")
		fmt.Println("iteration count and key length, so only the password is needed to")
		fmt.Println("decrypt it. Does not need a safe.")
	case "decrypt":
		fmt.Println("safe decrypt < container.json > plaintext")
		fmt.Println()
		fmt.Println("Decrypts a container produced by 'safe encrypt' or 'safe export'.")
	case "export":
		fmt.Println("safe export <collection> <file>")
		fmt.Println()
		fmt.Println("Writes a collection to file, encrypted with the safe password.")
		fmt.Println("The file must be inside the directory containing the safe.")
	case "import":
		fmt.Println("safe import <collection> <file> [--yes] [--reveal]")
		fmt.Println()
		fmt.Println("Replaces a collection with the contents of an export.")
		fmt.Println("Shows a diff and asks for confirmation unless --yes is given.")
	case "compact":
		fmt.Println("safe compact")
		fmt.Println()
		fmt.Println("Compacts the safe database to reclaim unused disk space.")
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("safe keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Stores the password in the OS keyring so that commands do not prompt.")
	case "completion":
		fmt.Println("safe completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(safe completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(safe completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  safe completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
