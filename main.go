package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"

	"github.com/cliossg/pagekit/internal/feat/manifest"
	"github.com/cliossg/pagekit/internal/feat/plugin"
	"github.com/cliossg/pagekit/internal/feat/preview"
	"github.com/cliossg/pagekit/internal/feat/site"
	"github.com/cliossg/pagekit/internal/metrics"
	"github.com/cliossg/pagekit/pkg/cl/app"
	"github.com/cliossg/pagekit/pkg/cl/config"
	"github.com/cliossg/pagekit/pkg/cl/database"
	"github.com/cliossg/pagekit/pkg/cl/logger"
	"github.com/cliossg/pagekit/pkg/cl/middleware"
	"github.com/cliossg/pagekit/pkg/cl/model"
)

//go:embed assets/migrations/sqlite/*.sql
var assetsFS embed.FS

type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"pagekit.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build     BuildCmd     `cmd:"" help:"Build the site once"`
	Serve     ServeCmd     `cmd:"" help:"Build the site, serve it and rebuild on change"`
	LastBuild LastBuildCmd `cmd:"" name:"last-build" help:"Show the most recent build recorded in the manifest"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pagekit"),
		kong.Description("Static site builder"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run(&cli))
}

// env is what every command builds on.
type env struct {
	cfg      *config.Config
	log      logger.Logger
	db       *database.Database
	store    *manifest.Store
	recorder *metrics.PrometheusRecorder
	site     *site.Site
}

func setup(cli *CLI) (*env, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Log.Level
	if cli.Verbose {
		level = "debug"
	}
	log := logger.New(level)

	e := &env{
		cfg:      cfg,
		log:      log,
		recorder: metrics.NewPrometheusRecorder(nil),
	}

	plugins := plugin.NewManager(log)
	for _, p := range []plugin.Plugin{plugin.NewDraft(log), plugin.NewSitemap()} {
		if err := plugins.Register(p); err != nil {
			return nil, err
		}
	}

	deps := site.Deps{
		Plugins:  plugins,
		Recorder: e.recorder,
	}
	if cfg.Manifest.Enabled {
		e.db = database.New(cfg.Manifest.Path, assetsFS, log)
		e.store = manifest.NewStore(e.db, log)
		deps.Manifest = e.store
	}

	e.site = site.New(cfg.Site, deps, log)
	return e, nil
}

// components lists the lifecycle components shared by all commands.
func (e *env) components() []any {
	if e.db == nil {
		return nil
	}
	return []any{e.db}
}

type BuildCmd struct{}

func (b *BuildCmd) Run(ctx context.Context, cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}

	lc := app.Setup(e.log, e.components()...)
	if err := lc.Start(ctx, nil); err != nil {
		return err
	}
	defer lc.Stop(context.Background())

	result, err := e.site.Build(ctx)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		e.log.Error(msg)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("build %s finished with %d error(s)", model.ShortID(result.BuildID), len(result.Errors))
	}
	return nil
}

type ServeCmd struct {
	Addr string `help:"Listen address, overrides server.addr"`
}

func (s *ServeCmd) Run(ctx context.Context, cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	if !e.site.Exists() {
		return fmt.Errorf("%w in %s", site.ErrNoPages, e.site.Path())
	}
	addr := e.cfg.Server.Addr
	if s.Addr != "" {
		addr = s.Addr
	}

	rebuild := func(ctx context.Context) error {
		_, err := e.site.Build(ctx)
		return err
	}
	watcher := preview.NewWatcher([]string{
		e.site.PagesPath(),
		e.site.TemplatesPath(),
		e.site.StaticPath(),
	}, rebuild, e.log)
	server := preview.NewServer(e.site, e.recorder.Handler(), e.log)

	comps := append(e.components(), initialBuild{site: e.site, log: e.log}, watcher, server)

	router := chi.NewRouter()
	middleware.DefaultStack(router, e.log)

	lc := app.Setup(e.log, comps...)
	if err := lc.Start(ctx, router); err != nil {
		return err
	}
	defer lc.Stop(context.Background())

	return app.Serve(ctx, addr, router, e.log)
}

// initialBuild builds the site once while the serve command starts up.
// A failing build is logged; the server still starts so it can be fixed live.
type initialBuild struct {
	site *site.Site
	log  logger.Logger
}

func (b initialBuild) Start(ctx context.Context) error {
	if _, err := b.site.Build(ctx); err != nil {
		b.log.Errorf("Initial build failed: %v", err)
	}
	return nil
}

type LastBuildCmd struct {
	Items bool `short:"i" help:"List the files written by the build"`
}

func (l *LastBuildCmd) Run(ctx context.Context, cli *CLI) error {
	e, err := setup(cli)
	if err != nil {
		return err
	}
	if e.store == nil {
		return fmt.Errorf("manifest is disabled")
	}

	lc := app.Setup(e.log, e.components()...)
	if err := lc.Start(ctx, nil); err != nil {
		return err
	}
	defer lc.Stop(context.Background())

	b, err := e.store.LastBuild(ctx)
	if err != nil {
		return err
	}

	finished := "unfinished"
	if b.FinishedAt != nil {
		finished = b.FinishedAt.Sub(b.StartedAt).String()
	}
	fmt.Fprintf(os.Stdout, "Build %s started %s (%s)\n", b.ID, b.StartedAt.Format("2006-01-02 15:04:05"), finished)
	fmt.Fprintf(os.Stdout, "  pages: %d  images: %d  discarded: %d  failed: %d\n", b.Pages, b.Images, b.Discarded, b.Failed)

	if !l.Items {
		return nil
	}
	items, err := e.store.ItemsForBuild(ctx, b.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Fprintf(os.Stdout, "  %-6s %-40s %-40s %8d %s\n", it.Kind, it.SourcePath, it.FinalURL, it.Size, it.Checksum[:12])
	}
	return nil
}
