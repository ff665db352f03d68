package page

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// PagesDir is the directory under the site root that holds page sources.
const PagesDir = "pages"

var (
	// ErrUnsupportedContent is returned when the writer receives a content variant it cannot build.
	ErrUnsupportedContent = errors.New("unsupported content")
	// ErrNoEngine is returned when a page is rendered for a site without a template engine.
	ErrNoEngine = errors.New("site has no template engine")
)

// Kind tells which variant a discovered file was classified as.
type Kind int

const (
	KindPage Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Context is the set of variables a page template is rendered with.
type Context map[string]any

// Clone returns a shallow copy of c.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Engine renders a template body against data.
type Engine interface {
	Render(name, body string, data any) (string, error)
}

// PluginManager receives the page build hooks.
type PluginManager interface {
	PreBuildPage(site Site, p *Page, ctx Context, body string) (Context, string)
	PostBuildPage(p *Page)
}

// Site is what content items need to know about the site they belong to.
// Context must be safe to read from several items at once.
type Site interface {
	URL() string
	PrettifyURLs() bool
	Path() string
	BuildPath() string
	Context() Context
	Plugins() PluginManager
	Engine() Engine
}

// URLResolver is implemented by anything that can be linked to.
type URLResolver interface {
	// LinkURL is the URL other pages use to reference this item in sources.
	LinkURL() string
	// FinalURL is the public URL once built.
	FinalURL() string
}

// Content is a file discovered under the pages directory.
type Content interface {
	URLResolver
	Kind() Kind
	SourcePath() string
	BuildPath() string
	FullSourcePath() string
	FullBuildPath() string
	AbsoluteFinalURL() string
	String() string
}

// imageTypes are registered on top of the host MIME table, which may lack them.
var imageTypes = map[string]string{
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

func init() {
	for ext, typ := range imageTypes {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// Classify decides how a discovered file is treated from its MIME type.
// Images are accepted but logged, since they normally belong with static assets.
// Unknown types are pages.
func Classify(sourcePath string, log logger.Logger) Kind {
	mimeType := mime.TypeByExtension(path.Ext(sourcePath))
	if strings.HasPrefix(mimeType, "image") {
		log.Warnf("Image in /%s directory found: %s", PagesDir, sourcePath)
		return KindImage
	}
	return KindPage
}

// FromPath classifies sourcePath and constructs the matching content item.
// sourcePath is relative to the pages directory; OS separators are normalized.
func FromPath(site Site, sourcePath string, log logger.Logger) Content {
	sourcePath = filepath.ToSlash(sourcePath)
	switch Classify(sourcePath, log) {
	case KindImage:
		return NewImage(site, sourcePath)
	default:
		return NewPage(site, sourcePath, log)
	}
}

// item holds what every content variant shares.
type item struct {
	site       Site
	sourcePath string
	loc        Location
}

func (i *item) SourcePath() string { return i.sourcePath }
func (i *item) LinkURL() string    { return i.loc.LinkURL }
func (i *item) FinalURL() string   { return i.loc.FinalURL }
func (i *item) BuildPath() string  { return i.loc.BuildPath }

func (i *item) FullSourcePath() string {
	return filepath.Join(i.site.Path(), PagesDir, filepath.FromSlash(i.sourcePath))
}

func (i *item) FullBuildPath() string {
	return filepath.Join(i.site.BuildPath(), filepath.FromSlash(i.loc.BuildPath))
}

// AbsoluteFinalURL joins the final URL onto the site base URL.
// Without a usable base URL it falls back to the final URL.
func (i *item) AbsoluteFinalURL() string {
	base, err := url.Parse(i.site.URL())
	if err != nil || i.site.URL() == "" {
		return i.loc.FinalURL
	}
	ref, err := url.Parse(i.loc.FinalURL)
	if err != nil {
		return i.loc.FinalURL
	}
	return base.ResolveReference(ref).String()
}
