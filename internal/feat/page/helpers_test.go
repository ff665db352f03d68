package page

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

func nopLogger() logger.Logger {
	return logger.NewNoopLogger()
}

type fakeSite struct {
	url       string
	prettify  bool
	root      string
	buildRoot string
	ctx       Context
	plugins   PluginManager
	engine    Engine
}

func (s *fakeSite) URL() string            { return s.url }
func (s *fakeSite) PrettifyURLs() bool     { return s.prettify }
func (s *fakeSite) Path() string           { return s.root }
func (s *fakeSite) BuildPath() string      { return s.buildRoot }
func (s *fakeSite) Context() Context       { return s.ctx }
func (s *fakeSite) Plugins() PluginManager { return s.plugins }
func (s *fakeSite) Engine() Engine {
	if s.engine == nil {
		return nil
	}
	return s.engine
}

// fakeEngine echoes the body and records what it was called with.
type fakeEngine struct {
	calls    int
	lastBody string
	lastData map[string]any
}

func (e *fakeEngine) Render(name, body string, data any) (string, error) {
	e.calls++
	e.lastBody = body
	e.lastData, _ = data.(map[string]any)
	return strings.ToUpper(body), nil
}

type fakePlugins struct {
	pre      func(site Site, p *Page, ctx Context, body string) (Context, string)
	preCalls int
	built    []string
}

func (f *fakePlugins) PreBuildPage(site Site, p *Page, ctx Context, body string) (Context, string) {
	f.preCalls++
	if f.pre != nil {
		return f.pre(site, p, ctx, body)
	}
	return ctx, body
}

func (f *fakePlugins) PostBuildPage(p *Page) {
	f.built = append(f.built, p.SourcePath())
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	root := t.TempDir()
	return &fakeSite{
		url:       "https://example.com",
		prettify:  true,
		root:      root,
		buildRoot: filepath.Join(root, ".build"),
		ctx:       Context{"SiteName": "Demo"},
		plugins:   &fakePlugins{},
		engine:    &fakeEngine{},
	}
}

func writePageSource(t *testing.T, site *fakeSite, sourcePath string, data []byte) {
	t.Helper()
	path := filepath.Join(site.root, PagesDir, filepath.FromSlash(sourcePath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}
