package plugin

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cliossg/pagekit/internal/feat/page"
)

const (
	SitemapFile  = "sitemap.xml"
	sitemapXMLNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists every written HTML page in <build>/sitemap.xml.
type Sitemap struct {
	mu   sync.Mutex
	urls map[string]struct{}
	now  func() time.Time
}

func NewSitemap() *Sitemap {
	return &Sitemap{
		urls: make(map[string]struct{}),
		now:  time.Now,
	}
}

func (s *Sitemap) Name() string { return "sitemap" }

func (s *Sitemap) PostBuildPage(p *page.Page) {
	if !p.IsHTML() {
		return
	}
	s.mu.Lock()
	s.urls[p.AbsoluteFinalURL()] = struct{}{}
	s.mu.Unlock()
}

// PostBuild writes the collected URLs, sorted, and resets for the next build.
func (s *Sitemap) PostBuild(site page.Site) error {
	s.mu.Lock()
	locs := make([]string, 0, len(s.urls))
	for u := range s.urls {
		locs = append(locs, u)
	}
	s.urls = make(map[string]struct{})
	s.mu.Unlock()

	sort.Strings(locs)

	lastMod := s.now().Format("2006-01-02")
	set := sitemapURLSet{XMLNS: sitemapXMLNS}
	for _, loc := range locs {
		set.URLs = append(set.URLs, sitemapURL{Loc: loc, LastMod: lastMod})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal sitemap: %w", err)
	}

	path := filepath.Join(site.BuildPath(), SitemapFile)
	if err := page.EnsureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), out...), 0644)
}
