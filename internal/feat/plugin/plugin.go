// Package plugin runs extension hooks around page builds.
package plugin

import (
	"fmt"
	"sync"

	"github.com/cliossg/pagekit/internal/feat/page"
	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// Plugin is anything registered with the manager. Hooks are picked up by
// implementing any of PreBuildPageHook, PostBuildPageHook or PostBuildHook.
type Plugin interface {
	Name() string
}

// PreBuildPageHook may rewrite the context and body a page is rendered with.
type PreBuildPageHook interface {
	PreBuildPage(site page.Site, p *page.Page, ctx page.Context, body string) (page.Context, string)
}

// PostBuildPageHook is told about every page written to disk.
type PostBuildPageHook interface {
	PostBuildPage(p *page.Page)
}

// PostBuildHook runs once after every item of a build was processed.
type PostBuildHook interface {
	PostBuild(site page.Site) error
}

// Manager holds plugins in registration order and fans hooks out to them.
type Manager struct {
	mu      sync.RWMutex
	plugins []Plugin
	names   map[string]bool
	log     logger.Logger
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		names: make(map[string]bool),
		log:   log,
	}
}

// Register adds p after the plugins already registered.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("cannot register nil plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.names[name] {
		return fmt.Errorf("plugin %s already registered", name)
	}
	m.names[name] = true
	m.plugins = append(m.plugins, p)
	m.log.Debugf("Registered plugin %s", name)
	return nil
}

// Names lists registered plugins in order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.plugins))
	for _, p := range m.plugins {
		names = append(names, p.Name())
	}
	return names
}

func (m *Manager) snapshot() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Plugin(nil), m.plugins...)
}

// PreBuildPage chains the hooks: each one sees what the previous returned.
func (m *Manager) PreBuildPage(site page.Site, p *page.Page, ctx page.Context, body string) (page.Context, string) {
	for _, pl := range m.snapshot() {
		if h, ok := pl.(PreBuildPageHook); ok {
			ctx, body = h.PreBuildPage(site, p, ctx, body)
		}
	}
	return ctx, body
}

func (m *Manager) PostBuildPage(p *page.Page) {
	for _, pl := range m.snapshot() {
		if h, ok := pl.(PostBuildPageHook); ok {
			h.PostBuildPage(p)
		}
	}
}

// PostBuild runs every post-build hook, even after one fails, and returns the first error.
func (m *Manager) PostBuild(site page.Site) error {
	var first error
	for _, pl := range m.snapshot() {
		h, ok := pl.(PostBuildHook)
		if !ok {
			continue
		}
		if err := h.PostBuild(site); err != nil {
			m.log.Errorf("Plugin %s post-build failed: %v", pl.Name(), err)
			if first == nil {
				first = fmt.Errorf("plugin %s: %w", pl.Name(), err)
			}
		}
	}
	return first
}
