// Package preview serves a built site locally and rebuilds it on change.
package preview

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

const MetricsPath = "/metrics"

// BuildDir is what the server needs from the site.
type BuildDir interface {
	BuildPath() string
}

// Server serves the build directory. Prettified URLs such as /about/ resolve
// to about/index.html.
type Server struct {
	site    BuildDir
	metrics http.Handler
	log     logger.Logger
}

// NewServer creates a preview server. metrics may be nil.
func NewServer(site BuildDir, metrics http.Handler, log logger.Logger) *Server {
	return &Server{
		site:    site,
		metrics: metrics,
		log:     log,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	s.log.Infof("Registering preview server for %s", s.site.BuildPath())
	if s.metrics != nil {
		r.Handle(MetricsPath, s.metrics)
	}
	r.Get("/*", s.serveHTML)
	r.Head("/*", s.serveHTML)
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request) {
	root := filepath.Clean(s.site.BuildPath())
	requestPath := r.URL.Path
	if requestPath == "/" || requestPath == "" {
		requestPath = "/index.html"
	}

	cleanPath := filepath.Clean(filepath.Join(root, filepath.FromSlash(requestPath)))
	if cleanPath != root && !strings.HasPrefix(cleanPath, root+string(filepath.Separator)) {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		if !os.IsNotExist(err) {
			http.Error(w, "Error reading file", http.StatusInternalServerError)
			return
		}
		// "/about" finds about/index.html as well.
		indexPath := filepath.Join(cleanPath, "index.html")
		if _, err := os.Stat(indexPath); err != nil {
			http.NotFound(w, r)
			return
		}
		cleanPath = indexPath
	} else if info.IsDir() {
		cleanPath = filepath.Join(cleanPath, "index.html")
		if _, err := os.Stat(cleanPath); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	// ServeFile would redirect requests for .../index.html to the directory.
	f, err := os.Open(cleanPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
}
