package page

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// CurrentPageKey is the context key holding the page being rendered.
const CurrentPageKey = "CurrentPage"

// Page is a renderable source file: an optional metadata header followed by a
// template body.
type Page struct {
	item
	log       logger.Logger
	rendered  cell[string]
	discarded bool
}

func NewPage(site Site, sourcePath string, log logger.Logger) *Page {
	return &Page{
		item: item{
			site:       site,
			sourcePath: sourcePath,
			loc:        PageLocation(sourcePath, site.PrettifyURLs()),
		},
		log: log.With("page", sourcePath),
	}
}

func (p *Page) Kind() Kind { return KindPage }

func (p *Page) String() string {
	return fmt.Sprintf("<Page: %s>", p.sourcePath)
}

// IsHTML reports whether the page gets a metadata header and prettified URLs.
func (p *Page) IsHTML() bool {
	return IsHTML(p.sourcePath)
}

// Discard keeps the page from being written. Rendering and its hooks still run.
func (p *Page) Discard() {
	p.discarded = true
}

func (p *Page) Discarded() bool {
	return p.discarded
}

// Data reads the page source. A source that is not valid UTF-8 is logged and
// read as an empty document so the rest of the build can go on.
func (p *Page) Data() (string, error) {
	raw, err := os.ReadFile(p.FullSourcePath())
	if err != nil {
		return "", fmt.Errorf("cannot read page %s: %w", p.sourcePath, err)
	}
	if !utf8.Valid(raw) {
		p.log.Warnf("Template engine could not process page: %s (invalid UTF-8)", p.sourcePath)
		return "", nil
	}
	return string(raw), nil
}

// ParseContext splits the metadata header off data. Non-HTML pages have no
// header: metadata is empty and data comes back unchanged.
func (p *Page) ParseContext(data, sep string) (*Metadata, string) {
	if !p.IsHTML() {
		return NewMetadata(), data
	}
	return ParseMetadata(data, sep)
}

// Context returns the variables the page would be rendered with.
func (p *Page) Context(extra Context) (Context, error) {
	data, err := p.Data()
	if err != nil {
		return nil, err
	}
	ctx, _ := p.buildContext(data, extra)
	return ctx, nil
}

// buildContext layers, lowest first: the current page, the site context,
// extra, then the page metadata. It also returns the body left after the header.
func (p *Page) buildContext(data string, extra Context) (Context, string) {
	ctx := Context{CurrentPageKey: p}

	meta, body := p.ParseContext(data, DefaultSeparator)

	for k, v := range p.site.Context() {
		ctx[k] = v
	}
	for k, v := range extra {
		ctx[k] = v
	}
	meta.MergeInto(ctx)

	return ctx, body
}

// Render returns the rendered page, computing it on first use.
func (p *Page) Render() (string, error) {
	return p.rendered.getOrCompute(p.render)
}

// ClearCache forces the next Render to run again.
func (p *Page) ClearCache() {
	p.rendered.invalidate()
}

func (p *Page) render() (string, error) {
	engine := p.site.Engine()
	if engine == nil {
		return "", ErrNoEngine
	}

	data, err := p.Data()
	if err != nil {
		return "", err
	}

	ctx, body := p.buildContext(data, nil)

	if plugins := p.site.Plugins(); plugins != nil {
		ctx, body = plugins.PreBuildPage(p.site, p, ctx, body)
	}

	return engine.Render(p.sourcePath, body, map[string]any(ctx))
}
