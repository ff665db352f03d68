package page

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// Writer persists content items under the build root.
// Items are independent; Build may run for different items concurrently as
// long as no two of them share a build path.
type Writer struct {
	log logger.Logger
}

func NewWriter(log logger.Logger) *Writer {
	return &Writer{log: log}
}

// Build writes c to its full build path. It reports whether a file was written;
// a discarded page is rendered but not written.
func (w *Writer) Build(c Content) (bool, error) {
	switch v := c.(type) {
	case *Page:
		return w.buildPage(v)
	case *Image:
		return true, w.buildImage(v)
	default:
		return false, fmt.Errorf("%w: %T", ErrUnsupportedContent, c)
	}
}

func (w *Writer) buildPage(p *Page) (bool, error) {
	w.log.Debugf("Building %s --> %s", p.SourcePath(), p.FinalURL())

	// Rendering runs the pre-build hooks, which may discard the page.
	data, err := p.Render()
	if err != nil {
		return false, err
	}

	if p.Discarded() {
		w.log.Debugf("Discarded %s", p.SourcePath())
		return false, nil
	}

	dest := p.FullBuildPath()
	if err := EnsureDir(dest); err != nil {
		return false, err
	}
	if err := os.WriteFile(dest, []byte(data), 0644); err != nil {
		return false, fmt.Errorf("cannot write %s: %w", dest, err)
	}

	if plugins := p.site.Plugins(); plugins != nil {
		plugins.PostBuildPage(p)
	}
	return true, nil
}

func (w *Writer) buildImage(i *Image) error {
	dest := i.FullBuildPath()
	if err := EnsureDir(dest); err != nil {
		return err
	}
	if err := CopyFile(i.FullSourcePath(), dest); err != nil {
		return fmt.Errorf("cannot copy %s: %w", i.SourcePath(), err)
	}
	return nil
}

// EnsureDir creates the parent directory of path. A directory that already
// exists, including one created concurrently, is not an error.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// CopyFile copies src to dst byte for byte, carrying over the permission bits.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
