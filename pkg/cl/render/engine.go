package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// pagePrefix keeps page bodies from shadowing layouts with the same file name.
const pagePrefix = "page:"

// Engine renders page bodies as templates against a shared set of layouts.
// Pages reach layouts with {{template "base.html" .}} and override their
// {{block}} sections with {{define}}.
type Engine struct {
	base *template.Template
	log  logger.Logger
}

// NewEngine parses every non-hidden file under templatesDir as a named layout.
// Names are slash-separated paths relative to templatesDir. A missing directory
// yields an engine without layouts.
func NewEngine(templatesDir string, funcs template.FuncMap, log logger.Logger) (*Engine, error) {
	base := template.New("").Funcs(MergeFuncMaps(FuncMap(), funcs))

	e := &Engine{base: base, log: log}
	if templatesDir == "" {
		return e, nil
	}

	if _, err := os.Stat(templatesDir); os.IsNotExist(err) {
		log.Debugf("No templates directory at %s", templatesDir)
		return e, nil
	}

	count := 0
	err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != templatesDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(templatesDir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read template %s: %w", path, err)
		}

		name := filepath.ToSlash(rel)
		if _, err := base.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("cannot parse template %s: %w", name, err)
		}
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Loaded %d template(s) from %s", count, templatesDir)
	return e, nil
}

// Render parses body as a template named after the page and executes it with data.
// Each call works on a clone of the layout set so page-level defines never leak.
func (e *Engine) Render(name, body string, data any) (string, error) {
	tmpl, err := e.base.Clone()
	if err != nil {
		return "", fmt.Errorf("cannot clone templates: %w", err)
	}

	page, err := tmpl.New(pagePrefix + name).Parse(body)
	if err != nil {
		return "", fmt.Errorf("cannot parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("cannot render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Has reports whether a layout with the given name was loaded.
func (e *Engine) Has(name string) bool {
	return e.base.Lookup(name) != nil
}
