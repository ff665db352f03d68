package preview

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

type buildDir string

func (d buildDir) BuildPath() string { return string(d) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestRouter(t *testing.T, metrics http.Handler) (chi.Router, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "home")
	writeFile(t, filepath.Join(root, "about", "index.html"), "about")
	writeFile(t, filepath.Join(root, "robots.txt"), "robots")
	writeFile(t, filepath.Join(root, "empty", "keep.txt"), "x")

	r := chi.NewRouter()
	NewServer(buildDir(root), metrics, logger.NewNoopLogger()).RegisterRoutes(r)
	return r, root
}

func TestServeHTML(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pagekit_items_total 1")
	})
	r, _ := newTestRouter(t, metrics)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "root", path: "/", wantCode: http.StatusOK, wantBody: "home"},
		{name: "explicit index", path: "/index.html", wantCode: http.StatusOK, wantBody: "home"},
		{name: "prettified", path: "/about/", wantCode: http.StatusOK, wantBody: "about"},
		{name: "without trailing slash", path: "/about", wantCode: http.StatusOK, wantBody: "about"},
		{name: "plain file", path: "/robots.txt", wantCode: http.StatusOK, wantBody: "robots"},
		{name: "missing", path: "/nope/", wantCode: http.StatusNotFound},
		{name: "dir without index", path: "/empty/", wantCode: http.StatusNotFound},
		{name: "metrics", path: MetricsPath, wantCode: http.StatusOK, wantBody: "pagekit_items_total 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServeHTMLRejectsTraversal(t *testing.T) {
	r, root := newTestRouter(t, nil)
	writeFile(t, filepath.Join(filepath.Dir(root), "secret.txt"), "secret")

	// Build the request by hand: NewRequest would clean the path.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("traversal served %q", rec.Body.String())
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, MetricsPath, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a metrics handler", rec.Code)
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	var rebuilds atomic.Int32
	w := NewWatcher(nil, func(ctx context.Context) error {
		rebuilds.Add(1)
		return nil
	}, logger.NewNoopLogger())
	w.debounce = 50 * time.Millisecond

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop(context.Background())

	for i := 0; i < 5; i++ {
		w.trigger()
	}
	time.Sleep(400 * time.Millisecond)

	if got := rebuilds.Load(); got != 1 {
		t.Errorf("rebuilds = %d, want 1", got)
	}
}

func TestWatcherRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	pages := filepath.Join(root, "pages")
	if err := os.MkdirAll(pages, 0755); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{}, 1)
	w := NewWatcher([]string{pages, filepath.Join(root, "missing")}, func(ctx context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}, logger.NewNoopLogger())
	w.debounce = 20 * time.Millisecond

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop(context.Background())

	writeFile(t, filepath.Join(pages, "new.html"), "hi")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := NewWatcher(nil, nil, logger.NewNoopLogger())
	if err := w.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"pages/about.html", false},
		{"pages/.about.html.swp", true},
		{"pages/about.html~", true},
		{"pages/about.swp", true},
		{"pages/#about.html#", true},
		{"static/.DS_Store", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := shouldIgnore(tt.path); got != tt.want {
				t.Errorf("shouldIgnore(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
