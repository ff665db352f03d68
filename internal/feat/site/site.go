// Package site discovers a site's content and builds it into the build directory.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliossg/pagekit/internal/feat/manifest"
	"github.com/cliossg/pagekit/internal/feat/page"
	"github.com/cliossg/pagekit/internal/feat/plugin"
	"github.com/cliossg/pagekit/internal/metrics"
	"github.com/cliossg/pagekit/pkg/cl/config"
	"github.com/cliossg/pagekit/pkg/cl/logger"
	"github.com/cliossg/pagekit/pkg/cl/model"
	"github.com/cliossg/pagekit/pkg/cl/render"
)

// ErrUnsafeBuildPath is returned when building would clean site sources.
var ErrUnsafeBuildPath = errors.New("unsafe build path")

// ErrNoPages is returned when the site root has no pages directory.
var ErrNoPages = errors.New("no pages directory")

// Manifest records builds. *manifest.Store satisfies it.
type Manifest interface {
	BeginBuild(ctx context.Context) (*manifest.Build, error)
	RecordItem(ctx context.Context, buildID uuid.UUID, c page.Content) error
	FinishBuild(ctx context.Context, b *manifest.Build) error
}

// Deps are the optional collaborators of a Site.
type Deps struct {
	Plugins *plugin.Manager
	// Engine, when set, is used for every build. Otherwise templates are
	// parsed from the site's templates directory at the start of each build.
	Engine   page.Engine
	Recorder metrics.Recorder
	Manifest Manifest
}

// BuildResult summarizes one build.
type BuildResult struct {
	BuildID   uuid.UUID
	Pages     int
	Images    int
	Discarded int
	Errors    []string
	Duration  time.Duration
}

// Site is a site root on disk: pages/, templates/ and static/ under Path.
type Site struct {
	cfg       config.SiteConfig
	buildPath string
	deps      Deps
	writer    *page.Writer
	log       logger.Logger

	buildMu sync.Mutex

	mu     sync.RWMutex
	engine page.Engine
	ctx    page.Context
}

func New(cfg config.SiteConfig, deps Deps, log logger.Logger) *Site {
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}

	buildPath := cfg.BuildPath
	if !filepath.IsAbs(buildPath) {
		buildPath = filepath.Join(cfg.Path, buildPath)
	}

	return &Site{
		cfg:       cfg,
		buildPath: buildPath,
		deps:      deps,
		writer:    page.NewWriter(log),
		log:       log,
		engine:    deps.Engine,
		ctx:       page.Context{},
	}
}

func (s *Site) Name() string       { return s.cfg.Name }
func (s *Site) URL() string        { return s.cfg.URL }
func (s *Site) PrettifyURLs() bool { return s.cfg.PrettifyURLs }
func (s *Site) Path() string       { return s.cfg.Path }
func (s *Site) BuildPath() string  { return s.buildPath }

func (s *Site) PagesPath() string     { return filepath.Join(s.cfg.Path, page.PagesDir) }
func (s *Site) TemplatesPath() string { return filepath.Join(s.cfg.Path, TemplatesDir) }
func (s *Site) StaticPath() string    { return filepath.Join(s.cfg.Path, StaticDir) }

// Context is the site-wide template context of the current build.
// It must not be modified by callers.
func (s *Site) Context() page.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *Site) Plugins() page.PluginManager {
	if s.deps.Plugins == nil {
		return nil
	}
	return s.deps.Plugins
}

func (s *Site) Engine() page.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Discover lists the content under the pages directory ordered by source
// path. Hidden files and directories are skipped.
func (s *Site) Discover() ([]page.Content, error) {
	root := s.PagesPath()

	var items []page.Content
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		items = append(items, page.FromPath(s, rel, s.log))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot discover pages: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].SourcePath() < items[j].SourcePath()
	})
	return items, nil
}

// Build renders and writes the whole site. Failures of single items are
// collected in the result; the returned error is reserved for failures that
// stop the build altogether.
func (s *Site) Build(ctx context.Context) (*BuildResult, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	result := &BuildResult{}

	if err := s.checkBuildPath(); err != nil {
		return nil, err
	}
	if !s.Exists() {
		return nil, fmt.Errorf("%w in %s", ErrNoPages, s.cfg.Path)
	}

	engine, err := s.loadEngine()
	if err != nil {
		return nil, err
	}

	items, err := s.Discover()
	if err != nil {
		return nil, err
	}

	s.log.Infof("Building %s (%d items) into %s", s.cfg.Name, len(items), s.buildPath)

	if err := CleanDir(s.buildPath); err != nil {
		return nil, fmt.Errorf("cannot clean build directory: %w", err)
	}
	if _, err := CopyDir(s.StaticPath(), filepath.Join(s.buildPath, StaticDir)); err != nil {
		return nil, fmt.Errorf("cannot copy static files: %w", err)
	}

	// Once begun, a manifest build is always finished, even if ctx is cancelled.
	recordCtx := context.WithoutCancel(ctx)

	var record *manifest.Build
	if s.deps.Manifest != nil {
		record, err = s.deps.Manifest.BeginBuild(recordCtx)
		if err != nil {
			return nil, err
		}
		result.BuildID = record.ID
	} else {
		result.BuildID = model.NewID()
	}

	s.mu.Lock()
	s.engine = engine
	s.ctx = s.siteContext(result.BuildID, items)
	s.mu.Unlock()

	written := s.buildItems(ctx, items, result)

	if record != nil {
		for _, c := range written {
			if err := s.deps.Manifest.RecordItem(recordCtx, record.ID, c); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
		}
	}

	if s.deps.Plugins != nil {
		if err := s.deps.Plugins.PostBuild(s); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if record != nil {
		record.Pages = result.Pages
		record.Images = result.Images
		record.Discarded = result.Discarded
		record.Failed = len(result.Errors)
		if err := s.deps.Manifest.FinishBuild(recordCtx, record); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Duration = time.Since(start)
	s.deps.Recorder.ObserveBuildDuration(result.Duration)
	s.deps.Recorder.SetLastBuildTimestamp(time.Now())

	s.log.Infof("Built %d pages and %d images in %s (%d discarded, %d errors)",
		result.Pages, result.Images, result.Duration.Round(time.Millisecond), result.Discarded, len(result.Errors))
	return result, nil
}

// buildItems runs the writer over items on a bounded pool and returns the
// items that ended up on disk, in source order.
func (s *Site) buildItems(ctx context.Context, items []page.Content, result *BuildResult) []page.Content {
	type outcome struct {
		done    bool
		written bool
		err     error
	}
	outcomes := make([]outcome, len(items))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(runtime.NumCPU(), len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ok, err := s.writer.Build(items[i])
				outcomes[i] = outcome{done: true, written: ok, err: err}
			}
		}()
	}

feed:
	for i := range items {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	var written []page.Content
	for i, c := range items {
		kind := c.Kind().String()
		o := outcomes[i]
		switch {
		case o.err != nil:
			s.log.Errorf("Cannot build %s: %v", c.SourcePath(), o.err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.SourcePath(), o.err))
			s.deps.Recorder.IncItem(kind, metrics.OutcomeFailed)
		case !o.done:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.SourcePath(), ctx.Err()))
			s.deps.Recorder.IncItem(kind, metrics.OutcomeFailed)
		case !o.written:
			result.Discarded++
			s.deps.Recorder.IncItem(kind, metrics.OutcomeDiscarded)
		default:
			if c.Kind() == page.KindImage {
				result.Images++
			} else {
				result.Pages++
			}
			written = append(written, c)
			s.deps.Recorder.IncItem(kind, metrics.OutcomeWritten)
		}
	}
	return written
}

// loadEngine returns the fixed engine, or parses the templates directory.
func (s *Site) loadEngine() (page.Engine, error) {
	if s.deps.Engine != nil {
		return s.deps.Engine, nil
	}
	engine, err := render.NewEngine(s.TemplatesPath(), render.FuncMap(), s.log)
	if err != nil {
		return nil, fmt.Errorf("cannot load templates: %w", err)
	}
	return engine, nil
}

// PageInfo is what templates see of every page in the site context.
type PageInfo struct {
	SourcePath string
	LinkURL    string
	FinalURL   string
}

func (s *Site) siteContext(buildID uuid.UUID, items []page.Content) page.Context {
	var pages []PageInfo
	for _, c := range items {
		if c.Kind() != page.KindPage {
			continue
		}
		pages = append(pages, PageInfo{
			SourcePath: c.SourcePath(),
			LinkURL:    c.LinkURL(),
			FinalURL:   c.FinalURL(),
		})
	}

	return page.Context{
		"SiteName": s.cfg.Name,
		"SiteURL":  s.cfg.URL,
		"Pages":    pages,
		"BuildID":  buildID.String(),
	}
}

// Exists reports whether the site root has a pages directory.
func (s *Site) Exists() bool {
	info, err := os.Stat(s.PagesPath())
	return err == nil && info.IsDir()
}

// checkBuildPath refuses build directories whose cleaning would remove
// sources: the site root or one of its ancestors, or anything inside pages,
// templates or static.
func (s *Site) checkBuildPath() error {
	build, err := filepath.Abs(s.buildPath)
	if err != nil {
		return fmt.Errorf("cannot resolve build path: %w", err)
	}
	root, err := filepath.Abs(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("cannot resolve site path: %w", err)
	}

	if within(build, root) {
		return fmt.Errorf("%w: %s contains the site root %s", ErrUnsafeBuildPath, build, root)
	}
	for _, dir := range []string{s.PagesPath(), s.TemplatesPath(), s.StaticPath()} {
		src, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("cannot resolve %s: %w", dir, err)
		}
		if within(src, build) {
			return fmt.Errorf("%w: %s is inside %s", ErrUnsafeBuildPath, build, src)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it. Both must be absolute.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
