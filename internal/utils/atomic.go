package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PartialSuffix is appended to files while they are being written
const PartialSuffix = ".part"

// WriteAtomic writes path through a sibling temporary file that is renamed
// into place once write returns successfully. Readers never observe a
// half-written file and a failed write leaves any previous file untouched.
func WriteAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	tmp := path + PartialSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(tmp), err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
