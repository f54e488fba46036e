package render

import (
	"errors"
	"sync"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/forcegraph"
	"github.com/ritzau/mindmesh/pkg/logging"
)

var (
	// ErrNoScene is returned by interaction calls when nothing is drawn.
	ErrNoScene = errors.New("nothing rendered")
	// ErrUnknownNode is returned for ids not present in the scene.
	ErrUnknownNode = forcegraph.ErrUnknownNode
)

// Input is everything a render needs. DarkMode changes colours only and
// SelectedID only the highlight.
type Input struct {
	Map        *cogmap.Map
	Nodes      []cogmap.Node
	Edges      []cogmap.Edge
	DarkMode   bool
	SelectedID cogmap.ID
}

// InputFor builds an Input from a map.
func InputFor(m *cogmap.Map, dark bool, selected cogmap.ID) Input {
	return Input{Map: m, Nodes: m.Nodes, Edges: m.Links, DarkMode: dark, SelectedID: selected}
}

// ClickFunc receives the clicked node and the map it belongs to.
type ClickFunc func(node cogmap.Node, m *cogmap.Map)

type scene struct {
	epoch     uint64
	input     Input
	nodes     []cogmap.Node
	edges     []cogmap.ResolvedEdge
	index     map[cogmap.ID]int
	res       *cogmap.Resolution
	positions []forcegraph.Position
	hovered   int
	adjacent  map[int]bool
	diag      Diagnostics
}

// Renderer draws one graph at a time. Every Render discards the previous
// scene and its simulation before building the next one.
type Renderer struct {
	opts   forcegraph.Options
	runner *forcegraph.Runner

	build sync.Mutex // serialises Render and Clear

	mu      sync.Mutex
	scene   *scene
	onClick ClickFunc
	onFrame func(Frame)
}

// NewRenderer creates an empty renderer.
func NewRenderer(opts forcegraph.Options, runnerOpts ...forcegraph.RunnerOption) *Renderer {
	r := &Renderer{opts: opts}
	r.runner = forcegraph.NewRunner(opts, r.handleTick, runnerOpts...)
	r.opts = r.viewport()
	return r
}

func (r *Renderer) viewport() forcegraph.Options {
	d := forcegraph.DefaultOptions()
	o := r.opts
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// OnClick registers the node click callback.
func (r *Renderer) OnClick(fn ClickFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClick = fn
}

// OnFrame registers a listener called with a fresh frame after every tick
// and every rebuild.
func (r *Renderer) OnFrame(fn func(Frame)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFrame = fn
}

// Render tears down the current scene and builds a new one from in. An
// empty node list draws nothing.
func (r *Renderer) Render(in Input) Diagnostics {
	r.build.Lock()
	defer r.build.Unlock()

	r.teardown()

	if len(in.Nodes) == 0 {
		logging.Warn("no nodes to render")
		return Diagnostics{Empty: true}
	}

	sc := newScene(in)
	for _, e := range sc.diag.Unresolved {
		logging.Warn("edge endpoint not found", "source", e.Source, "target", e.Target)
	}
	for _, id := range sc.diag.Duplicates {
		logging.Warn("duplicate node id", "id", id)
	}
	for _, e := range sc.diag.SelfLoops {
		logging.Debug("skipping self loop", "id", e.Source)
	}

	var edges []cogmap.Edge
	for _, e := range sc.edges {
		edges = append(edges, e.Edge)
	}

	r.mu.Lock()
	sc.epoch = r.runner.Start(sc.nodes, edges)
	sc.positions = r.runner.Positions()
	r.scene = sc
	frame := r.frameLocked()
	listener := r.onFrame
	r.mu.Unlock()

	logging.Debug("scene built", "nodes", len(sc.nodes), "edges", len(sc.edges),
		"components", sc.diag.Components, "epoch", sc.epoch)
	if listener != nil {
		listener(frame)
	}
	return sc.diag
}

// Clear tears down the current scene.
func (r *Renderer) Clear() {
	r.build.Lock()
	defer r.build.Unlock()
	r.teardown()
}

// Close stops the simulation for good.
func (r *Renderer) Close() {
	r.Clear()
}

func (r *Renderer) teardown() {
	r.mu.Lock()
	r.scene = nil
	r.mu.Unlock()
	r.runner.Stop()
}

func newScene(in Input) *scene {
	sc := &scene{input: in, hovered: -1}

	seen := make(map[cogmap.ID]bool, len(in.Nodes))
	for _, n := range in.Nodes {
		if seen[n.ID] {
			sc.diag.Duplicates = append(sc.diag.Duplicates, n.ID)
			continue
		}
		seen[n.ID] = true
		sc.nodes = append(sc.nodes, n)
	}

	sc.res = cogmap.Resolve(sc.nodes, in.Edges)
	sc.edges = sc.res.Edges
	sc.diag.Unresolved = sc.res.Unresolved
	sc.diag.SelfLoops = sc.res.SelfLoops
	sc.diag.Components = sc.res.Components()
	sc.index = make(map[cogmap.ID]int, len(sc.nodes))
	for i, n := range sc.nodes {
		sc.index[n.ID] = i
	}
	return sc
}

// setHovered moves the hover to node i, or clears it for -1, and marks the
// hovered node's neighbours.
func (sc *scene) setHovered(i int) {
	sc.hovered = i
	sc.adjacent = nil
	if i < 0 {
		return
	}
	sc.adjacent = make(map[int]bool)
	for _, j := range sc.res.Neighbors(i) {
		sc.adjacent[j] = true
	}
}

func (r *Renderer) handleTick(f forcegraph.Frame) {
	r.mu.Lock()
	if r.scene == nil || r.scene.epoch != f.Epoch {
		r.mu.Unlock()
		return
	}
	r.scene.positions = f.Positions
	frame := r.frameLocked()
	listener := r.onFrame
	r.mu.Unlock()

	if listener != nil {
		listener(frame)
	}
}

// Frame returns the current scene. ok is false when nothing is drawn.
func (r *Renderer) Frame() (frame Frame, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scene == nil {
		return Frame{Width: r.opts.Width, Height: r.opts.Height}, false
	}
	return r.frameLocked(), true
}

func (r *Renderer) frameLocked() Frame {
	sc := r.scene
	pal := PaletteFor(sc.input.DarkMode)
	f := Frame{
		Epoch:       sc.epoch,
		Width:       r.opts.Width,
		Height:      r.opts.Height,
		DarkMode:    sc.input.DarkMode,
		Palette:     pal,
		Nodes:       make([]NodeView, len(sc.nodes)),
		Edges:       make([]EdgeView, 0, len(sc.edges)),
		Diagnostics: sc.diag,
	}

	for i, n := range sc.nodes {
		p := sc.positions[i]
		v := NodeView{
			ID:       n.ID,
			Type:     n.Type,
			Label:    n.Label,
			X:        p.X,
			Y:        p.Y,
			Fill:     NodeColor(n.Type),
			Pinned:   p.Pinned,
			Selected: sc.input.SelectedID != "" && n.ID == sc.input.SelectedID,
			Hovered:  i == sc.hovered,
			Adjacent: sc.adjacent[i],
		}
		if v.Label == "" {
			v.Label = string(n.ID)
		}
		switch {
		case v.Hovered:
			v.Radius, v.StrokeWidth = HoverRadius, HoverStrokeWidth
		case v.Selected:
			v.Radius, v.StrokeWidth = NodeRadius, SelectedStrokeWidth
		default:
			v.Radius, v.StrokeWidth = NodeRadius, StrokeWidth
		}
		v.Stroke = pal.Stroke
		if v.Selected {
			v.Stroke = SelectedStroke
		}
		f.Nodes[i] = v
	}

	for _, e := range sc.edges {
		s, t := sc.positions[e.Source], sc.positions[e.Target]
		f.Edges = append(f.Edges, EdgeView{
			Source: e.Edge.Source,
			Target: e.Edge.Target,
			X1:     s.X,
			Y1:     s.Y,
			X2:     t.X,
			Y2:     t.Y,
		})
	}
	return f
}

// Hover enlarges id. Entering another node moves the hover.
func (r *Renderer) Hover(id cogmap.ID) error {
	return r.setHover(id, true)
}

// Leave reverts id to its resting style.
func (r *Renderer) Leave(id cogmap.ID) error {
	return r.setHover(id, false)
}

func (r *Renderer) setHover(id cogmap.ID, enter bool) error {
	r.mu.Lock()
	if r.scene == nil {
		r.mu.Unlock()
		return ErrNoScene
	}
	i, ok := r.scene.index[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownNode
	}
	switch {
	case enter:
		r.scene.setHovered(i)
	case r.scene.hovered == i:
		r.scene.setHovered(-1)
	}
	frame := r.frameLocked()
	listener := r.onFrame
	r.mu.Unlock()

	if listener != nil {
		listener(frame)
	}
	return nil
}

// Click reports id to the click callback together with the map. The
// renderer itself keeps no selection.
func (r *Renderer) Click(id cogmap.ID) (cogmap.Node, error) {
	r.mu.Lock()
	if r.scene == nil {
		r.mu.Unlock()
		return cogmap.Node{}, ErrNoScene
	}
	i, ok := r.scene.index[id]
	if !ok {
		r.mu.Unlock()
		return cogmap.Node{}, ErrUnknownNode
	}
	node := r.scene.nodes[i]
	m := r.scene.input.Map
	fn := r.onClick
	r.mu.Unlock()

	if fn != nil {
		fn(node, m)
	}
	return node, nil
}

// NodeAt returns the topmost node under (x, y).
func (r *Renderer) NodeAt(x, y float64) (cogmap.ID, bool) {
	frame, ok := r.Frame()
	if !ok {
		return "", false
	}
	for i := len(frame.Nodes) - 1; i >= 0; i-- {
		n := frame.Nodes[i]
		dx, dy := x-n.X, y-n.Y
		if dx*dx+dy*dy <= n.Radius*n.Radius {
			return n.ID, true
		}
	}
	return "", false
}

// DragStart pins id where it is and reheats the layout.
func (r *Renderer) DragStart(id cogmap.ID) error {
	if err := r.checkNode(id); err != nil {
		return err
	}
	return r.runner.DragStart(id)
}

// DragMove moves the pinned node to the pointer.
func (r *Renderer) DragMove(id cogmap.ID, x, y float64) error {
	if err := r.checkNode(id); err != nil {
		return err
	}
	return r.runner.DragMove(id, x, y)
}

// DragEnd releases the node.
func (r *Renderer) DragEnd(id cogmap.ID) error {
	if err := r.checkNode(id); err != nil {
		return err
	}
	return r.runner.DragEnd(id)
}

func (r *Renderer) checkNode(id cogmap.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scene == nil {
		return ErrNoScene
	}
	if _, ok := r.scene.index[id]; !ok {
		return ErrUnknownNode
	}
	return nil
}

// Simulating reports whether the layout is still moving.
func (r *Renderer) Simulating() bool {
	return r.runner.Running()
}
