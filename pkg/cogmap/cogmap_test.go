package cogmap

import (
	"errors"
	"reflect"
	"testing"
)

func TestIDCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
	}{
		{`"core"`, "core"},
		{`1`, "1"},
		{`1.0`, "1"},
		{`2.5`, "2.5"},
		{`{"id": 7}`, "7"},
		{`{"id": "sub_1", "label": "x"}`, "sub_1"},
		{`null`, ""},
		{`true`, "true"},
	}
	for _, tt := range tests {
		var id ID
		if err := id.UnmarshalJSON([]byte(tt.raw)); err != nil {
			t.Errorf("UnmarshalJSON(%s) failed: %v", tt.raw, err)
			continue
		}
		if id != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.raw, id, tt.want)
		}
	}
}

func TestDecodeMixedEndpoints(t *testing.T) {
	payload := `{
		"topic": "Photosynthesis",
		"graph_nodes": [{"id": 1, "type": "core", "label": "Light"}, {"id": "2", "label": "Water"}],
		"graph_links": [{"source": {"id": 1}, "target": 2}]
	}`
	m, err := Decode([]byte(payload), KindSingle)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := m.CheckShape(); err != nil {
		t.Fatalf("CheckShape failed: %v", err)
	}
	want := []Edge{{Source: "1", Target: "2"}}
	if !reflect.DeepEqual(m.Links, want) {
		t.Errorf("links: got %+v, want %+v", m.Links, want)
	}
	r := Resolve(m.Nodes, m.Links)
	if len(r.Edges) != 1 || len(r.Unresolved) != 0 {
		t.Errorf("expected one resolved edge, got %d resolved, %d unresolved", len(r.Edges), len(r.Unresolved))
	}
}

func TestCheckShape(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"graph_nodes":[{"id":"a"}],"graph_links":[]}`, false},
		{"missing nodes", `{"graph_links":[]}`, true},
		{"empty nodes", `{"graph_nodes":[],"graph_links":[]}`, true},
		{"missing links", `{"graph_nodes":[{"id":"a"}]}`, true},
		{"object links", `{"graph_nodes":[{"id":"a"}],"graph_links":{}}`, true},
		{"null links", `{"graph_nodes":[{"id":"a"}],"graph_links":null}`, true},
		{"string nodes", `{"graph_nodes":"a","graph_links":[]}`, true},
		{"top-level array", `[]`, true},
		{"top-level numbers", `[1,2]`, true},
		{"top-level string", `"ok"`, true},
		{"top-level number", `42`, true},
		{"top-level bool", `true`, true},
		{"top-level null", `null`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.payload), KindSingle)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			err = m.CheckShape()
			if tt.wantErr && !errors.Is(err, ErrInvalidShape) {
				t.Errorf("expected ErrInvalidShape, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	for _, body := range []string{`<html>oops</html>`, `{"graph_nodes":[`, ``} {
		if _, err := Decode([]byte(body), KindSingle); err == nil {
			t.Errorf("Decode(%q): expected error", body)
		}
	}
}

func TestNormalizeBackfills(t *testing.T) {
	m := &Map{
		Nodes: []Node{
			{},
			{ID: "x", Type: "weird", Label: "Chlorophyll"},
			{ID: "y", Type: TypeExample, Label: "Leaves", Description: "Green."},
		},
		Links: []Edge{},
	}
	m.Normalize(DefaultTrail)

	want := []Node{
		{ID: "node_0", Type: TypeSub, Label: "Node 1", Description: "This sub represents: Node 1"},
		{ID: "x", Type: TypeSub, Label: "Chlorophyll", Description: "This sub represents: Chlorophyll"},
		{ID: "y", Type: TypeExample, Label: "Leaves", Description: "Green."},
	}
	if !reflect.DeepEqual(m.Nodes, want) {
		t.Errorf("nodes:\n got %+v\nwant %+v", m.Nodes, want)
	}
	if m.ReasoningTrail != DefaultTrail {
		t.Errorf("reasoning trail not defaulted: %q", m.ReasoningTrail)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	m := &Map{
		ReasoningTrail: "Because.",
		Nodes: []Node{
			{ID: "a", Type: TypeCore, Label: "A", Description: "first"},
			{ID: "b", Type: TypeAdjacent, Label: "B", Description: "second"},
		},
		Links: []Edge{{Source: "a", Target: "b"}},
	}
	before := *m
	before.Nodes = append([]Node(nil), m.Nodes...)

	m.Normalize(DefaultTrail)
	m.Normalize(DefaultFusionTrail)

	if !reflect.DeepEqual(m.Nodes, before.Nodes) || m.ReasoningTrail != before.ReasoningTrail {
		t.Errorf("normalizing a complete map changed it: %+v", m)
	}
}

func TestResolveReportsUnresolved(t *testing.T) {
	nodes := []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a"}}
	edges := []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "ghost"},
		{Source: "c", Target: "c"},
	}
	r := Resolve(nodes, edges)

	if len(r.Edges) != 1 {
		t.Errorf("expected 1 resolved edge, got %d", len(r.Edges))
	}
	if len(r.SelfLoops) != 1 || r.SelfLoops[0].Source != "c" {
		t.Errorf("expected c->c reported as a self loop, got %+v", r.SelfLoops)
	}
	if len(r.Unresolved) != 1 || r.Unresolved[0].Target != "ghost" {
		t.Errorf("expected ghost edge unresolved, got %+v", r.Unresolved)
	}
	if !reflect.DeepEqual(r.Duplicates, []ID{"a"}) {
		t.Errorf("duplicates: got %v", r.Duplicates)
	}
	if got := r.Neighbors(0); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("neighbors of a: got %v", got)
	}
	if got := r.Degree(4); !reflect.DeepEqual(got, []int{1, 1, 0, 0}) {
		t.Errorf("degree: got %v", got)
	}
	if got := r.Components(); got != 2 {
		t.Errorf("components: got %d, want 2", got)
	}
}

func TestTitlesAndFilenames(t *testing.T) {
	m := &Map{Topic: "Neural Networks"}
	if m.Title() != "Cognitive Map: Neural Networks" {
		t.Errorf("Title() = %q", m.Title())
	}
	fusion := &Map{Kind: KindFusion, TopicA: "AI", TopicB: "Ethics"}
	if fusion.DisplayTopic() != "AI & Ethics" {
		t.Errorf("DisplayTopic() = %q", fusion.DisplayTopic())
	}
	if got := ImageFilename(KindSingle, "Neural  Networks"); got != "cognitive-map-Neural-Networks.png" {
		t.Errorf("ImageFilename = %q", got)
	}
	if got := ImageFilename(KindFusion, "Machine Learning", "Ethics"); got != "fusion-map-Machine-Learning-Ethics.png" {
		t.Errorf("ImageFilename = %q", got)
	}
}
