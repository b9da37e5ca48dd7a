package render

import (
	"fmt"
	"html/template"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/recovery"
)

// Block is the outcome of rendering one section: its HTML, or the error card
// that replaced it.
type Block struct {
	SectionID string
	Type      domain.SectionType
	HTML      template.HTML
	Err       *recovery.Error
	Actions   []recovery.Action
	Dismissed bool
}

// Failed reports whether the section rendered as an error card.
func (b Block) Failed() bool { return b.Err != nil }

// CallbackFactory supplies the recovery hooks offered for a section.
type CallbackFactory func(sectionID string) recovery.Callbacks

// Driver renders pages section by section, each inside its own boundary.
// Boundaries are kept per section id across renders so a failed section
// stays failed until a recovery action clears it.
type Driver struct {
	mu         sync.Mutex
	registry   *Registry
	generic    Renderer
	unknown    Renderer
	callbacks  CallbackFactory
	boundaries map[string]*recovery.Boundary
	logger     *zap.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

func WithDriverLogger(l *zap.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithCallbackFactory replaces the default hooks, which offer a retry that
// re-renders the section on the next pass.
func WithCallbackFactory(f CallbackFactory) DriverOption {
	return func(d *Driver) {
		if f != nil {
			d.callbacks = f
		}
	}
}

// WithRegistry replaces the built-in templates.
func WithRegistry(r *Registry) DriverOption {
	return func(d *Driver) {
		if r != nil {
			d.registry = r
		}
	}
}

func NewDriver(opts ...DriverOption) *Driver {
	md := NewMarkdown()
	d := &Driver{
		generic:    NewGenericRenderer(md),
		unknown:    Placeholder{},
		boundaries: make(map[string]*recovery.Boundary),
		logger:     zap.NewNop(),
		callbacks: func(string) recovery.Callbacks {
			return recovery.Callbacks{OnRetry: func() error { return nil }}
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = DefaultRegistry()
	}
	return d
}

// RenderPage renders sections in order. A section whose renderer fails or
// panics becomes an error card; its siblings render normally.
func (d *Driver) RenderPage(sections []domain.Section, isPreview bool) []Block {
	d.mu.Lock()
	live := make(map[string]bool, len(sections))
	for _, s := range sections {
		live[s.ID] = true
	}
	for id := range d.boundaries {
		if !live[id] {
			delete(d.boundaries, id)
		}
	}
	d.mu.Unlock()

	blocks := make([]Block, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, d.renderSection(s, isPreview))
	}
	return blocks
}

func (d *Driver) renderSection(s domain.Section, isPreview bool) Block {
	b := d.boundary(s)
	view := NewView(s)
	r := d.rendererFor(s.Type)

	block := Block{SectionID: s.ID, Type: s.Type}
	var out template.HTML
	if perr := b.Capture(func() error {
		html, err := r.Render(view, isPreview)
		out = html
		return err
	}); perr != nil {
		block.Err = perr
		block.Actions = b.Actions()
		block.Dismissed = b.Dismissed()
		if !block.Dismissed {
			block.HTML = ErrorCard(perr, block.Actions)
		}
		return block
	}
	block.HTML = out
	return block
}

// HTML joins the rendered blocks into one fragment.
func (d *Driver) HTML(blocks []Block) template.HTML {
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(string(blk.HTML))
	}
	return template.HTML(b.String())
}

// Invoke runs a recovery action on the boundary of sectionID.
func (d *Driver) Invoke(sectionID string, action recovery.ActionType) error {
	d.mu.Lock()
	b, ok := d.boundaries[sectionID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no rendered section %s", sectionID)
	}
	return b.Invoke(action)
}

// Boundary returns the boundary of sectionID, if it has been rendered.
func (d *Driver) Boundary(sectionID string) (*recovery.Boundary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.boundaries[sectionID]
	return b, ok
}

// Forget drops the boundary of sectionID so its next render starts clean.
func (d *Driver) Forget(sectionID string) {
	d.mu.Lock()
	delete(d.boundaries, sectionID)
	d.mu.Unlock()
}

func (d *Driver) boundary(s domain.Section) *recovery.Boundary {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.boundaries[s.ID]
	if !ok {
		b = recovery.NewBoundary(ComponentName(s.Type), s.ID,
			recovery.WithLogger(d.logger),
			recovery.WithCallbacks(d.callbacks(s.ID)))
		d.boundaries[s.ID] = b
	}
	return b
}

func (d *Driver) rendererFor(t domain.SectionType) Renderer {
	if r, ok := d.registry.Lookup(t); ok {
		return r
	}
	if t.Known() {
		return d.generic
	}
	return d.unknown
}
