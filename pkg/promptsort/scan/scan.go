// Package scan finds candidate image files under a root directory.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Options controls which files are picked up.
type Options struct {
	Extensions []string // lowercase, with leading dot
	SkipDirs   []string // directory names skipped wherever they occur
}

// DefaultOptions returns the extensions and skipped folders used when
// nothing is configured.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp"},
		SkipDirs:   []string{".bf"},
	}
}

// Discover walks root and returns matching files in lexical order.
// Unreadable subdirectories are skipped; only an invalid root is an error.
func Discover(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}
