package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/export"
	"github.com/ritzau/mindmesh/pkg/generate"
	"github.com/ritzau/mindmesh/pkg/logging"
	"github.com/ritzau/mindmesh/pkg/render"
)

var (
	// ErrBusy rejects a submission while a request is in flight.
	ErrBusy = errors.New("a map is already being generated")
	// ErrNoMap rejects actions that need a displayed map.
	ErrNoMap = errors.New("no map to show")
)

// Renderer is the part of render.Renderer a page drives.
type Renderer interface {
	Render(render.Input) render.Diagnostics
	Clear()
	Frame() (render.Frame, bool)
	OnClick(render.ClickFunc)
}

// Controller is one page: a form, its request lifecycle and the map it
// displays.
type Controller struct {
	v          variant
	client     generate.Generator
	renderer   Renderer
	downloader export.Downloader
	printer    export.Printer
	png        export.PNGOptions

	renderMu sync.Mutex // orders renderer calls; taken before mu

	mu            sync.Mutex
	state         State
	generation    uint64
	request       Request
	current       *cogmap.Map
	errMsg        string
	lastErr       error
	selection     *Selection
	selectedID    cogmap.ID
	panelOpen     bool
	showReasoning bool
	dark          bool
	pending       chan struct{}
	listeners     []func(Snapshot)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDownloader sets where image exports go by default.
func WithDownloader(d export.Downloader) Option {
	return func(c *Controller) { c.downloader = d }
}

// WithPrinter sets how documents are printed by default.
func WithPrinter(p export.Printer) Option {
	return func(c *Controller) { c.printer = p }
}

// WithDarkMode sets the initial theme.
func WithDarkMode(dark bool) Option {
	return func(c *Controller) { c.dark = dark }
}

// WithPNGOptions configures image export.
func WithPNGOptions(o export.PNGOptions) Option {
	return func(c *Controller) { c.png = o }
}

// NewSingle creates the single-topic page.
func NewSingle(client generate.Generator, renderer Renderer, opts ...Option) *Controller {
	return newController(singleVariant, client, renderer, opts)
}

// NewFusion creates the two-topic fusion page.
func NewFusion(client generate.Generator, renderer Renderer, opts ...Option) *Controller {
	return newController(fusionVariant, client, renderer, opts)
}

func newController(v variant, client generate.Generator, renderer Renderer, opts []Option) *Controller {
	c := &Controller{
		v:          v,
		client:     client,
		renderer:   renderer,
		downloader: export.FileDownloader{Dir: "."},
		printer:    export.BrowserPrinter{},
		png:        export.DefaultPNGOptions(),
	}
	for _, o := range opts {
		o(c)
	}
	renderer.OnClick(c.handleClick)
	return c
}

// Subscribe registers fn to receive a snapshot after every change. fn runs
// with the controller locked and must not call back into it.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns a copy of the page state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Kind:          c.v.kind.String(),
		State:         c.state,
		Generation:    c.generation,
		Request:       c.request,
		Map:           c.current,
		Error:         c.errMsg,
		SelectedID:    c.selectedID,
		PanelOpen:     c.panelOpen,
		ShowReasoning: c.showReasoning,
		DarkMode:      c.dark,
	}
	if c.selection != nil {
		sel := *c.selection
		s.Selected = &sel
	}
	return s
}

func (c *Controller) notifyLocked() {
	if len(c.listeners) == 0 {
		return
	}
	s := c.snapshotLocked()
	for _, fn := range c.listeners {
		fn(s)
	}
}

// Submit validates req and starts a request. It returns once the page is
// Loading; use Wait for the outcome. A blank form sets a validation message
// and leaves the state alone.
func (c *Controller) Submit(ctx context.Context, req Request) error {
	req, err := c.v.check(req)
	if err != nil {
		c.mu.Lock()
		c.errMsg = err.Error()
		c.lastErr = err
		c.notifyLocked()
		c.mu.Unlock()
		logging.DebugContext(ctx, "submission rejected", "kind", c.v.kind, "error", err)
		return err
	}
	complexity, err := generate.ParseComplexity(req.Complexity)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	req.Complexity = string(complexity)

	c.mu.Lock()
	if c.state == Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.generation++
	gen := c.generation
	c.state = Loading
	c.request = req
	c.clearLocked()
	done := make(chan struct{})
	c.pending = done
	c.notifyLocked()
	c.mu.Unlock()

	c.clearRenderer(gen)

	logging.InfoContext(ctx, "requesting map", "kind", c.v.kind, "generation", gen, "complexity", complexity)
	go c.run(context.WithoutCancel(ctx), gen, req, complexity, done)
	return nil
}

// clearLocked drops the map, error, selection and panels.
func (c *Controller) clearLocked() {
	c.current = nil
	c.errMsg = ""
	c.lastErr = nil
	c.selection = nil
	c.selectedID = ""
	c.panelOpen = false
	c.showReasoning = false
}

func (c *Controller) run(ctx context.Context, gen uint64, req Request, cx generate.Complexity, done chan struct{}) {
	defer close(done)

	start := time.Now()
	m, err := c.v.fetch(ctx, c.client, req, cx)
	if err == nil {
		err = m.CheckShape()
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		logging.DebugContext(ctx, "discarding stale response", "generation", gen)
		return
	}
	if err != nil {
		c.state = Error
		c.errMsg = err.Error()
		if c.errMsg == "" {
			c.errMsg = c.v.fallback
		}
		c.lastErr = err
		c.notifyLocked()
		c.mu.Unlock()
		logging.WarnContext(ctx, "map request failed", "kind", c.v.kind, "error", c.errMsg,
			"durationMs", time.Since(start).Milliseconds())
		return
	}

	m.Normalize(c.v.defaultTrail)
	c.current = m
	c.state = Success
	c.notifyLocked()
	c.mu.Unlock()

	logging.InfoContext(ctx, "map ready", "kind", c.v.kind, "topic", m.DisplayTopic(),
		"nodes", len(m.Nodes), "edges", len(m.Links), "durationMs", time.Since(start).Milliseconds())
	c.rerender(gen)
}

// Wait blocks until the request started by the last Submit has finished
// and returns the resulting state.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.pending
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

// Generate submits req and waits for the outcome. The error is the
// validation, transport, application or shape error that ended the request.
func (c *Controller) Generate(ctx context.Context, req Request) (Snapshot, error) {
	if err := c.Submit(ctx, req); err != nil {
		return c.Snapshot(), err
	}
	snap, err := c.Wait(ctx)
	if err != nil {
		return snap, err
	}
	c.mu.Lock()
	err = c.lastErr
	c.mu.Unlock()
	return snap, err
}

// Reset abandons the page, as when navigating away. Any response still in
// flight is discarded when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = Idle
	c.request = Request{}
	c.clearLocked()
	c.pending = nil
	c.notifyLocked()
	c.mu.Unlock()

	c.clearRenderer(gen)
}

// SelectNode records id as the selected node and opens the detail panel.
func (c *Controller) SelectNode(id cogmap.ID) error {
	c.mu.Lock()
	if c.state != Success || c.current == nil {
		c.mu.Unlock()
		return ErrNoMap
	}
	node, ok := c.current.Node(id)
	if !ok {
		c.mu.Unlock()
		return render.ErrUnknownNode
	}
	gen := c.selectLocked(node, c.current)
	c.mu.Unlock()

	c.rerender(gen)
	return nil
}

func (c *Controller) handleClick(node cogmap.Node, m *cogmap.Map) {
	c.mu.Lock()
	if c.state != Success || m != c.current {
		c.mu.Unlock()
		return
	}
	gen := c.selectLocked(node, m)
	c.mu.Unlock()

	c.rerender(gen)
}

func (c *Controller) selectLocked(node cogmap.Node, m *cogmap.Map) uint64 {
	c.selection = &Selection{Node: node, Map: m}
	c.selectedID = node.ID
	c.panelOpen = true
	c.notifyLocked()
	return c.generation
}

// ClosePanel closes the detail panel and forgets the selection.
func (c *Controller) ClosePanel() {
	c.mu.Lock()
	had := c.panelOpen || c.selection != nil
	c.selection = nil
	c.selectedID = ""
	c.panelOpen = false
	c.notifyLocked()
	gen := c.generation
	c.mu.Unlock()

	if had {
		c.rerender(gen)
	}
}

// ToggleReasoningTrail shows or hides the reasoning trail panel.
func (c *Controller) ToggleReasoningTrail() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showReasoning = !c.showReasoning
	c.notifyLocked()
	return c.showReasoning
}

// SetDarkMode redraws the map with the given theme.
func (c *Controller) SetDarkMode(dark bool) {
	c.mu.Lock()
	if c.dark == dark {
		c.mu.Unlock()
		return
	}
	c.dark = dark
	c.notifyLocked()
	gen := c.generation
	c.mu.Unlock()

	c.rerender(gen)
}

// rerender draws the current map if gen is still the latest generation.
func (c *Controller) rerender(gen uint64) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if gen != c.generation || c.state != Success || c.current == nil {
		c.mu.Unlock()
		return
	}
	in := render.InputFor(c.current, c.dark, c.selectedID)
	c.mu.Unlock()

	c.renderer.Render(in)
}

func (c *Controller) clearRenderer(gen uint64) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	stale := gen != c.generation
	c.mu.Unlock()
	if !stale {
		c.renderer.Clear()
	}
}
