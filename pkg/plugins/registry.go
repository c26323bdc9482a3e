package plugins

import (
	"sort"
	"strings"
)

// ActiveSet reports whether configuration enables a plugin id
type ActiveSet interface {
	HasPlugin(id string) bool
}

// Registry is the immutable index of discovered plugins. It is built once
// and may be shared between goroutines without locking.
type Registry struct {
	plugins []*Plugin
	byExt   map[string][]*Plugin
}

// NewRegistry builds a registry. Plugins are ordered by id then kind; when
// two plugins share an (id, kind) pair the first one given is kept.
func NewRegistry(plugins ...*Plugin) *Registry {
	type identity struct {
		id   string
		kind Kind
	}
	seen := make(map[identity]bool, len(plugins))

	r := &Registry{
		plugins: make([]*Plugin, 0, len(plugins)),
		byExt:   make(map[string][]*Plugin),
	}
	for _, p := range plugins {
		key := identity{p.ID(), p.Kind}
		if seen[key] {
			continue
		}
		seen[key] = true
		r.plugins = append(r.plugins, p)
	}

	sort.SliceStable(r.plugins, func(i, j int) bool {
		return r.plugins[i].Less(r.plugins[j])
	})

	for _, p := range r.plugins {
		for _, ext := range p.Manifest.Extensions {
			key := normalizeExt(ext)
			r.byExt[key] = append(r.byExt[key], p)
		}
	}

	return r
}

// All returns every plugin in registry order
func (r *Registry) All() []*Plugin {
	return append([]*Plugin(nil), r.plugins...)
}

// Len returns the number of plugins
func (r *Registry) Len() int {
	return len(r.plugins)
}

// Get returns the plugin with the given id and kind
func (r *Registry) Get(id string, kind Kind) (*Plugin, bool) {
	for _, p := range r.plugins {
		if p.ID() == id && p.Kind == kind {
			return p, true
		}
	}
	return nil, false
}

// ByKind returns the plugins of one kind in registry order
func (r *Registry) ByKind(kind Kind) []*Plugin {
	var result []*Plugin
	for _, p := range r.plugins {
		if p.Kind == kind {
			result = append(result, p)
		}
	}
	return result
}

// ListActive returns plugins whose id is enabled by cfg, in registry order
func (r *Registry) ListActive(cfg ActiveSet) []*Plugin {
	var result []*Plugin
	for _, p := range r.plugins {
		if cfg.HasPlugin(p.ID()) {
			result = append(result, p)
		}
	}
	return result
}

// ByExtension returns plugins handling ext ("js" or ".js"). Unknown
// extensions yield an empty result.
func (r *Registry) ByExtension(ext string) []*Plugin {
	return append([]*Plugin(nil), r.byExt[normalizeExt(ext)]...)
}

// Extensions returns every indexed extension, sorted
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
