package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// EnvFile is the dotenv file the CLI loads settings from
const EnvFile = ".env"

// Status describes how the safe and its plaintext neighbours relate to git
type Status struct {
	IsRepo      bool
	SafeTracked bool
	// Plaintext files that can hold SAFE_PASSWORD
	TrackedPlaintext   []string
	UnignoredPlaintext []string
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by any .gitignore
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// Check inspects the safe at safePath and the .env file next to it
func Check(safePath string) *Status {
	dir := filepath.Dir(safePath)
	status := &Status{}

	if !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true
	status.SafeTracked = IsTracked(dir, filepath.Base(safePath))

	envPath := filepath.Join(dir, EnvFile)
	if _, err := os.Stat(envPath); err != nil {
		return status
	}
	if IsTracked(dir, EnvFile) {
		status.TrackedPlaintext = append(status.TrackedPlaintext, EnvFile)
	} else if !IsIgnored(dir, EnvFile) {
		status.UnignoredPlaintext = append(status.UnignoredPlaintext, EnvFile)
	}
	return status
}

// Format renders status for display. Empty outside a repository.
func Format(status *Status, safeName string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	if status.SafeTracked {
		fmt.Fprintf(&result, "   ok: %s is tracked by git\n", safeName)
	} else {
		fmt.Fprintf(&result, "   info: %s not tracked (run: git add %s)\n", safeName, safeName)
	}

	for _, file := range status.TrackedPlaintext {
		fmt.Fprintf(&result, "   error: %s is tracked by git and may hold SAFE_PASSWORD (run: git rm --cached %s)\n", file, file)
	}
	for _, file := range status.UnignoredPlaintext {
		fmt.Fprintf(&result, "   warning: %s not in .gitignore\n", file)
	}

	return result.String()
}
