package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator confines export and import files to one directory using
// the os.Root API.
type PathValidator struct {
	root    *os.Root
	rootDir string
}

// New creates a PathValidator rooted at dir.
func New(dir string) (*PathValidator, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory: %w", err)
	}

	return &PathValidator{root: root, rootDir: absDir}, nil
}

// Close releases the root handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute root directory.
func (pv *PathValidator) Dir() string {
	return pv.rootDir
}

// Validate rejects empty, absolute and escaping paths and returns the
// cleaned, slash-separated relative form.
func (pv *PathValidator) Validate(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if filepath.IsAbs(userPath) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
	}

	// IsLocal also rejects reserved names on Windows
	clean := filepath.Clean(userPath)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(clean), nil
}

// WriteFile creates or truncates name inside the root.
func (pv *PathValidator) WriteFile(name string, data []byte, perm os.FileMode) error {
	rel, err := pv.Validate(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	f, err := pv.root.OpenFile(filepath.FromSlash(rel), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads name from inside the root.
func (pv *PathValidator) ReadFile(name string) ([]byte, error) {
	rel, err := pv.Validate(name)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := pv.root.Open(filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// Stat describes name inside the root.
func (pv *PathValidator) Stat(name string) (os.FileInfo, error) {
	rel, err := pv.Validate(name)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Stat(filepath.FromSlash(rel))
}
