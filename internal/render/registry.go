package render

import (
	"fmt"
	"html/template"
	"sort"
	"sync"

	"pagebuilder/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Renderer Registry: pluggable per-type section templates
// ─────────────────────────────────────────────────────────────

// Renderer draws one section. isPreview is true on the editor canvas and
// false on the public page.
type Renderer interface {
	Render(v SectionView, isPreview bool) (template.HTML, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v SectionView, isPreview bool) (template.HTML, error)

func (f RendererFunc) Render(v SectionView, isPreview bool) (template.HTML, error) {
	return f(v, isPreview)
}

// Registry maps section types to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[domain.SectionType]Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[domain.SectionType]Renderer)}
}

// Register adds r for t. Panics on duplicate registration.
func (r *Registry) Register(t domain.SectionType, rr Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.renderers[t]; exists {
		panic(fmt.Sprintf("render registry: duplicate registration for section type %q", t))
	}
	r.renderers[t] = rr
}

// Lookup returns the renderer for t, if any.
func (r *Registry) Lookup(t domain.SectionType) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rr, ok := r.renderers[t]
	return rr, ok
}

// Types lists the registered section types, sorted.
func (r *Registry) Types() []domain.SectionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SectionType, 0, len(r.renderers))
	for t := range r.renderers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRegistry returns a registry with the built-in section templates.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	md := NewMarkdown()
	for t, rr := range builtinRenderers(md) {
		r.Register(t, rr)
	}
	return r
}
