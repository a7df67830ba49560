package fsio

import (
	"fmt"
	"os"
	"path/filepath"
)

// Hooks for filesystem operations, overridable in tests.
var (
	ReadFile       = os.ReadFile
	WriteFile      = os.WriteFile
	StatFile       = os.Stat
	ReadDir        = os.ReadDir
	Remove         = os.Remove
	Rename         = os.Rename
	CreateTempFile = os.CreateTemp
	MkdirAll       = os.MkdirAll
)

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := StatFile(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := StatFile(path)
	return err == nil && fi.IsDir()
}

// WriteFileAtomic writes data to path via a temp file and rename.
// Parent directories are created as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}

	tmp, err := CreateTempFile(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %q: %w", dir, err)
	}
	defer Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp %q to %q: %w", tmp.Name(), path, err)
	}
	return nil
}
