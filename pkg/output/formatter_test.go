package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/export"
)

func TestPrintMapReport(t *testing.T) {
	color.NoColor = true

	m := &cogmap.Map{
		Topic:          "Graph Theory",
		CoreIdea:       "Study of networks",
		SubIdeas:       []string{"Trees", "Cycles"},
		Contradictions: []string{},
		Nodes: []cogmap.Node{
			{ID: "1", Type: cogmap.TypeCore, Label: "Graphs", Description: "vertices and edges"},
			{ID: "2", Type: cogmap.TypeSub, Label: "Trees"},
		},
		Links: []cogmap.Edge{{Source: "1", Target: "2"}},
	}

	var buf bytes.Buffer
	PrintMapReport(&buf, m)
	out := buf.String()

	want := []string{
		"Cognitive Map: Graph Theory",
		"Reasoning Trail",
		export.NoTrail,
		"Core Idea",
		"Study of networks",
		"  - Trees",
		"Contradictions",
		"(none)",
		"Real-world Examples",
		"Graph: 2 nodes, 1 links",
		"vertices and edges",
	}
	last := -1
	for _, s := range want {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("report missing %q:\n%s", s, out)
		}
		if i < last {
			t.Errorf("%q out of order", s)
		}
		last = i
	}
}

func TestPrintError(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintError(&buf, "Please enter a topic")
	if got := buf.String(); got != "Error: Please enter a topic\n" {
		t.Errorf("got %q", got)
	}
}
