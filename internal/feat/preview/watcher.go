package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// DefaultDebounce is how long the watcher waits after the last change before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc rebuilds the site.
type RebuildFunc func(ctx context.Context) error

// Watcher triggers a rebuild when anything under its roots changes. Bursts of
// events collapse into a single rebuild, and a change during a rebuild
// schedules exactly one more.
type Watcher struct {
	roots    []string
	rebuild  RebuildFunc
	debounce time.Duration
	log      logger.Logger

	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	timer   *time.Timer
	request chan struct{}
}

// NewWatcher watches roots recursively. Roots that do not exist are skipped.
func NewWatcher(roots []string, rebuild RebuildFunc, log logger.Logger) *Watcher {
	return &Watcher{
		roots:    roots,
		rebuild:  rebuild,
		debounce: DefaultDebounce,
		log:      log,
		request:  make(chan struct{}, 1),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	w.fsw = fsw

	for _, root := range w.roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			w.log.Debugf("Not watching missing %s", root)
			continue
		}
		w.addDirsRecursive(root)
	}

	// Start is called with the startup context; the loops live until Stop.
	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(2)
	go w.eventLoop(runCtx)
	go w.rebuildLoop(runCtx)

	w.log.Infof("Watching %s for changes", strings.Join(w.roots, ", "))
	return nil
}

func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if shouldIgnore(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ev.Name)
		}
	}
	w.log.Debugf("Change detected: %s %s", ev.Op, ev.Name)
	w.trigger()
}

// trigger (re)arms the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.request <- struct{}{}:
		default:
		}
	})
}

// rebuildLoop runs rebuilds one at a time. The request channel holds at most
// one pending request, so changes during a rebuild coalesce into one more.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.request:
			w.log.Info("Change detected; rebuilding site")
			if err := w.rebuild(ctx); err != nil {
				w.log.Errorf("Rebuild failed: %v", err)
			}
		}
	}
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warnf("Cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// shouldIgnore skips hidden files and editor temp files.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}
