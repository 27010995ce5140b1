package utils

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// Discover lazily walks root and yields every regular file whose extension
// matches ext (case-insensitive, with or without the leading dot). Walk errors
// are yielded with an empty path and the walk carries on with the next entry.
// Order follows filepath.WalkDir and must not be relied on.
func Discover(root, ext string) iter.Seq2[string, error] {
	want := "." + strings.ToLower(strings.TrimPrefix(ext, "."))

	return func(yield func(string, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield("", err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if strings.ToLower(filepath.Ext(path)) != want {
				return nil
			}
			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// VideoID returns the identifier of a downloaded video: its file name without extension
func VideoID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
