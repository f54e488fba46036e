package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/ritzau/mindmesh/pkg/cogmap"
)

// NodeView is a node as currently drawn.
type NodeView struct {
	ID          cogmap.ID       `json:"id"`
	Type        cogmap.NodeType `json:"type"`
	Label       string          `json:"label"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Radius      float64         `json:"r"`
	Fill        string          `json:"fill"`
	Stroke      string          `json:"stroke"`
	StrokeWidth float64         `json:"strokeWidth"`
	Hovered     bool            `json:"hovered,omitempty"`
	Adjacent    bool            `json:"adjacent,omitempty"`
	Selected    bool            `json:"selected,omitempty"`
	Pinned      bool            `json:"pinned,omitempty"`
}

// EdgeView is a resolved edge as currently drawn.
type EdgeView struct {
	Source cogmap.ID `json:"source"`
	Target cogmap.ID `json:"target"`
	X1     float64   `json:"x1"`
	Y1     float64   `json:"y1"`
	X2     float64   `json:"x2"`
	Y2     float64   `json:"y2"`
}

// Diagnostics lists data quality problems found while building a scene.
// Components counts the connected pieces of the drawn graph.
type Diagnostics struct {
	Empty      bool          `json:"empty,omitempty"`
	Unresolved []cogmap.Edge `json:"unresolved,omitempty"`
	SelfLoops  []cogmap.Edge `json:"selfLoops,omitempty"`
	Duplicates []cogmap.ID   `json:"duplicates,omitempty"`
	Components int           `json:"components,omitempty"`
}

// Frame is a snapshot of the scene.
type Frame struct {
	Epoch       uint64      `json:"epoch"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	DarkMode    bool        `json:"darkMode"`
	Palette     Palette     `json:"palette"`
	Nodes       []NodeView  `json:"nodes"`
	Edges       []EdgeView  `json:"edges"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// SVG serialises the frame as a standalone SVG document. A non-empty
// background paints an opaque rectangle behind the graph.
func (f Frame) SVG(background string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		f.Width, f.Height, f.Width, f.Height))
	if background != "" {
		sb.WriteString(fmt.Sprintf(`  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", background))
	}

	sb.WriteString(fmt.Sprintf(`  <g stroke="%s" stroke-opacity="%g" stroke-width="%g">`+"\n", f.Palette.Edge, EdgeOpacity, EdgeWidth))
	for _, e := range f.Edges {
		sb.WriteString(fmt.Sprintf(`    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n", e.X1, e.Y1, e.X2, e.Y2))
	}
	sb.WriteString("  </g>\n")

	sb.WriteString("  <g>\n")
	for _, n := range f.Nodes {
		sb.WriteString(fmt.Sprintf(`    <circle data-id="%s" cx="%.2f" cy="%.2f" r="%g" fill="%s" stroke="%s" stroke-width="%g"/>`+"\n",
			html.EscapeString(string(n.ID)), n.X, n.Y, n.Radius, n.Fill, n.Stroke, n.StrokeWidth))
	}
	sb.WriteString("  </g>\n")

	sb.WriteString(fmt.Sprintf(`  <g font-family="sans-serif" font-size="%g" font-weight="%d" fill="%s">`+"\n",
		LabelFontSize, LabelWeight, f.Palette.Label))
	for _, n := range f.Nodes {
		sb.WriteString(fmt.Sprintf(`    <text x="%.2f" y="%.2f">%s</text>`+"\n",
			n.X+LabelOffsetX, n.Y+LabelOffsetY, html.EscapeString(n.Label)))
	}
	sb.WriteString("  </g>\n")

	sb.WriteString("</svg>\n")
	return sb.String()
}

// Node returns the view of id.
func (f Frame) Node(id cogmap.ID) (NodeView, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}
