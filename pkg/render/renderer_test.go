package render

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/forcegraph"
)

func testMap() *cogmap.Map {
	return &cogmap.Map{
		Kind:  cogmap.KindSingle,
		Topic: "Graphs",
		Nodes: []cogmap.Node{
			{ID: "1", Type: cogmap.TypeCore, Label: "Graphs"},
			{ID: "2", Type: cogmap.TypeSub, Label: "Edges & <Vertices>"},
			{ID: "3", Type: "mystery"},
		},
		Links: []cogmap.Edge{
			{Source: "1", Target: "2"},
			{Source: "1", Target: "3"},
			{Source: "2", Target: "ghost"},
		},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r := NewRenderer(forcegraph.Options{TickInterval: time.Millisecond})
	t.Cleanup(r.Close)
	return r
}

func mustFrame(t *testing.T, r *Renderer) Frame {
	t.Helper()
	f, ok := r.Frame()
	if !ok {
		t.Fatal("nothing rendered")
	}
	return f
}

func mustNode(t *testing.T, f Frame, id cogmap.ID) NodeView {
	t.Helper()
	n, ok := f.Node(id)
	if !ok {
		t.Fatalf("node %s not in frame", id)
	}
	return n
}

func TestRenderEmptyDrawsNothing(t *testing.T) {
	r := newTestRenderer(t)
	var frames int
	r.OnFrame(func(Frame) { frames++ })

	diag := r.Render(Input{Map: &cogmap.Map{}})
	if !diag.Empty {
		t.Error("empty input not reported")
	}
	if _, ok := r.Frame(); ok {
		t.Error("frame available after empty render")
	}
	if frames != 0 {
		t.Errorf("listener called %d times", frames)
	}
	if r.Simulating() {
		t.Error("simulation running for empty input")
	}
}

func TestRenderStyles(t *testing.T) {
	tests := []struct {
		name    string
		dark    bool
		stroke  string
		edge    string
		label   string
		picked  cogmap.ID
		pickedW float64
	}{
		{name: "light", stroke: "#ffffff", edge: "#555555", label: "#111111", picked: "2", pickedW: SelectedStrokeWidth},
		{name: "dark", dark: true, stroke: "#cccccc", edge: "#aaaaaa", label: "#e5e7eb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t)
			r.Render(InputFor(testMap(), tt.dark, tt.picked))
			f := mustFrame(t, r)

			if f.Palette.Edge != tt.edge || f.Palette.Label != tt.label {
				t.Errorf("palette = %+v", f.Palette)
			}

			core := mustNode(t, f, "1")
			if core.Fill != "#3b82f6" || core.Stroke != tt.stroke || core.StrokeWidth != StrokeWidth || core.Radius != NodeRadius {
				t.Errorf("core view = %+v", core)
			}
			if n := mustNode(t, f, "3"); n.Fill != UnknownColor {
				t.Errorf("unknown type fill = %s", n.Fill)
			}
			if n := mustNode(t, f, "3"); n.Label != "3" {
				t.Errorf("label fallback = %q, want id", n.Label)
			}

			if tt.picked != "" {
				n := mustNode(t, f, tt.picked)
				if !n.Selected || n.Stroke != SelectedStroke || n.StrokeWidth != tt.pickedW {
					t.Errorf("selected view = %+v", n)
				}
			}
		})
	}
}

func TestHoverEnterAndLeave(t *testing.T) {
	r := newTestRenderer(t)
	r.Render(InputFor(testMap(), false, "2"))

	for _, id := range []cogmap.ID{"1", "2"} {
		if err := r.Hover(id); err != nil {
			t.Fatalf("Hover(%s): %v", id, err)
		}
		n := mustNode(t, mustFrame(t, r), id)
		if n.Radius != HoverRadius || n.StrokeWidth != HoverStrokeWidth {
			t.Errorf("hovered %s = r %g, w %g", id, n.Radius, n.StrokeWidth)
		}
		if err := r.Leave(id); err != nil {
			t.Fatalf("Leave(%s): %v", id, err)
		}
	}

	f := mustFrame(t, r)
	if n := mustNode(t, f, "1"); n.Radius != NodeRadius || n.StrokeWidth != StrokeWidth {
		t.Errorf("after leave, plain node = r %g, w %g", n.Radius, n.StrokeWidth)
	}
	if n := mustNode(t, f, "2"); n.Radius != NodeRadius || n.StrokeWidth != SelectedStrokeWidth || n.Stroke != SelectedStroke {
		t.Errorf("after leave, selected node = %+v", n)
	}

	if err := r.Hover("nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Hover(nope) = %v", err)
	}
}

func TestHoverMarksNeighbours(t *testing.T) {
	r := newTestRenderer(t)
	r.Render(InputFor(testMap(), false, ""))

	if err := r.Hover("2"); err != nil {
		t.Fatal(err)
	}
	f := mustFrame(t, r)
	if n := mustNode(t, f, "1"); !n.Adjacent {
		t.Error("neighbour of hovered node not marked")
	}
	if n := mustNode(t, f, "3"); n.Adjacent {
		t.Error("node two hops away marked adjacent")
	}
	if n := mustNode(t, f, "2"); n.Adjacent {
		t.Error("hovered node marked as its own neighbour")
	}

	if err := r.Leave("2"); err != nil {
		t.Fatal(err)
	}
	for _, n := range mustFrame(t, r).Nodes {
		if n.Adjacent {
			t.Errorf("%s still adjacent after leave", n.ID)
		}
	}
}

func TestClickReportsNodeAndMap(t *testing.T) {
	r := newTestRenderer(t)
	if _, err := r.Click("1"); !errors.Is(err, ErrNoScene) {
		t.Errorf("Click before render = %v, want ErrNoScene", err)
	}

	m := testMap()
	var gotNode cogmap.Node
	var gotMap *cogmap.Map
	r.OnClick(func(n cogmap.Node, mm *cogmap.Map) {
		gotNode, gotMap = n, mm
	})
	r.Render(InputFor(m, false, ""))

	if _, err := r.Click("2"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if gotNode.ID != "2" || gotNode.Label != "Edges & <Vertices>" {
		t.Errorf("clicked node = %+v", gotNode)
	}
	if gotMap != m {
		t.Error("click did not report the rendered map")
	}

	// Selection is the caller's business.
	if n := mustNode(t, mustFrame(t, r), "2"); n.Selected {
		t.Error("renderer selected the clicked node on its own")
	}
}

func TestUnresolvedAndDuplicateDiagnostics(t *testing.T) {
	r := newTestRenderer(t)
	m := testMap()
	m.Nodes = append(m.Nodes, cogmap.Node{ID: "1", Label: "again"})

	diag := r.Render(InputFor(m, false, ""))
	if len(diag.Unresolved) != 1 || diag.Unresolved[0].Target != "ghost" {
		t.Errorf("unresolved = %v", diag.Unresolved)
	}
	if len(diag.Duplicates) != 1 || diag.Duplicates[0] != "1" {
		t.Errorf("duplicates = %v", diag.Duplicates)
	}

	f := mustFrame(t, r)
	if len(f.Nodes) != 3 {
		t.Errorf("nodes drawn = %d, want 3", len(f.Nodes))
	}
	if len(f.Edges) != 2 {
		t.Errorf("edges drawn = %d, want 2", len(f.Edges))
	}
	if n := mustNode(t, f, "1"); n.Label != "Graphs" {
		t.Errorf("first node with a repeated id should win, got %q", n.Label)
	}
	if diag.Components != 1 {
		t.Errorf("components = %d, want 1", diag.Components)
	}
}

func TestSelfLoopsAreNotDrawn(t *testing.T) {
	r := newTestRenderer(t)
	m := testMap()
	m.Nodes = append(m.Nodes, cogmap.Node{ID: "4", Label: "Island"})
	m.Links = append(m.Links, cogmap.Edge{Source: "1", Target: "1"})

	diag := r.Render(InputFor(m, false, ""))
	if len(diag.SelfLoops) != 1 || diag.SelfLoops[0].Source != "1" {
		t.Errorf("self loops = %v", diag.SelfLoops)
	}
	if diag.Components != 2 {
		t.Errorf("components = %d, want 2", diag.Components)
	}

	f := mustFrame(t, r)
	if len(f.Edges) != 2 {
		t.Errorf("edges drawn = %d, want 2", len(f.Edges))
	}
	for _, e := range f.Edges {
		if e.Source == e.Target {
			t.Errorf("self loop %s drawn", e.Source)
		}
	}
	if strings.Count(f.SVG(""), "<line") != 2 {
		t.Error("svg contains a line per self loop")
	}
}

func TestRebuildDropsStaleFrames(t *testing.T) {
	r := newTestRenderer(t)

	var mu sync.Mutex
	var epochs []uint64
	r.OnFrame(func(f Frame) {
		mu.Lock()
		epochs = append(epochs, f.Epoch)
		mu.Unlock()
	})

	r.Render(InputFor(testMap(), false, ""))
	time.Sleep(10 * time.Millisecond)

	r.Render(InputFor(testMap(), true, "1"))
	current := mustFrame(t, r).Epoch
	mu.Lock()
	mark := len(epochs)
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, e := range epochs[mark:] {
		if e != current {
			t.Fatalf("frame from epoch %d delivered after rebuild to %d", e, current)
		}
	}
}

func TestNodeAtAndDrag(t *testing.T) {
	r := newTestRenderer(t)
	r.Render(InputFor(testMap(), false, ""))

	if err := r.DragStart("1"); err != nil {
		t.Fatalf("DragStart: %v", err)
	}
	if err := r.DragMove("1", 123, 456); err != nil {
		t.Fatalf("DragMove: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		n := mustNode(t, mustFrame(t, r), "1")
		if n.X == 123 && n.Y == 456 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dragged node at (%g, %g)", n.X, n.Y)
		}
		time.Sleep(time.Millisecond)
	}

	if id, ok := r.NodeAt(123+NodeRadius/2, 456); !ok || id != "1" {
		t.Errorf("NodeAt = %q, %v", id, ok)
	}
	if err := r.DragEnd("1"); err != nil {
		t.Fatalf("DragEnd: %v", err)
	}
	if err := r.DragStart("ghost"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("DragStart(ghost) = %v", err)
	}
}

func TestFrameSVG(t *testing.T) {
	r := newTestRenderer(t)
	r.Render(InputFor(testMap(), false, ""))
	svg := mustFrame(t, r).SVG("#ffffff")

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="1100" height="700"`,
		`<rect width="100%" height="100%" fill="#ffffff"/>`,
		`fill="#3b82f6"`,
		`Edges &amp; &lt;Vertices&gt;`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("circles = %d, want 3", got)
	}
	if got := strings.Count(svg, "<line"); got != 2 {
		t.Errorf("lines = %d, want 2", got)
	}
}
