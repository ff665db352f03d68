package site

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cliossg/pagekit/internal/feat/page"
)

// Site root layout.
const (
	TemplatesDir = "templates"
	StaticDir    = "static"
)

// CleanDir removes all contents of a directory but keeps the directory itself.
// The preview server keeps serving from it, so it is never removed.
func CleanDir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())
		if err := os.RemoveAll(entryPath); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entryPath, err)
		}
	}

	return nil
}

// CopyDir copies every non-hidden file under src to the same relative path
// under dst. A missing src copies nothing.
func CopyDir(src, dst string) (int, error) {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return 0, nil
	}

	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != src && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(dst, relPath)
		if err := page.EnsureDir(dest); err != nil {
			return err
		}
		if err := page.CopyFile(path, dest); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
