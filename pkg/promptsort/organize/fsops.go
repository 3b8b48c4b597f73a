package organize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists is returned instead of overwriting a file.
var ErrExists = errors.New("destination exists")

// Protection lists folders whose files are never moved.
type Protection struct {
	Exact []string // folder names, compared case-insensitively
	Fuzzy []string // fragments matched anywhere in the folder name
}

// Protected reports whether path sits directly in a protected folder.
func (p Protection) Protected(path string) bool {
	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))
	if dir == "" || dir == "." || dir == string(filepath.Separator) {
		return false
	}
	for _, name := range p.Exact {
		if strings.EqualFold(dir, name) {
			return true
		}
	}
	for _, frag := range p.Fuzzy {
		if frag != "" && strings.Contains(dir, strings.ToLower(frag)) {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

// moveFile renames src to dst, falling back to copy and remove when a
// plain rename fails (for example across devices). dst must not exist.
func moveFile(src, dst string) error {
	if exists(dst) {
		return fmt.Errorf("%s: %w", dst, ErrExists)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to a new file dst, removing the partial copy on
// failure.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
