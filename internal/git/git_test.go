package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = dir
	if err := cmd.Run(); err != nil {
		t.Skipf("git init failed: %v", err)
	}
	return dir
}

func TestCheckOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	status := Check(filepath.Join(dir, ".safe"))
	if IsGitRepo(dir) {
		t.Skip("temp dir is inside a git work tree")
	}
	if status.IsRepo {
		t.Error("expected no repository")
	}
	if Format(status, ".safe") != "" {
		t.Error("expected empty output outside a repository")
	}
}

func TestCheckUnignoredEnv(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, EnvFile), []byte("SAFE_PASSWORD=x\n"), 0600); err != nil {
		t.Fatal(err)
	}

	status := Check(filepath.Join(dir, ".safe"))
	if !status.IsRepo {
		t.Fatal("expected repository")
	}
	if len(status.UnignoredPlaintext) != 1 {
		t.Errorf("expected .env to be flagged, got %+v", status)
	}
	if out := Format(status, ".safe"); !strings.Contains(out, "warning: .env not in .gitignore") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".env\n"), 0600); err != nil {
		t.Fatal(err)
	}
	status = Check(filepath.Join(dir, ".safe"))
	if len(status.UnignoredPlaintext) != 0 || len(status.TrackedPlaintext) != 0 {
		t.Errorf("ignored .env should not be flagged, got %+v", status)
	}
}
