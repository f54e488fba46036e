package render

import "github.com/ritzau/mindmesh/pkg/cogmap"

// Node and label geometry, in viewport pixels.
const (
	NodeRadius  = 16.0
	HoverRadius = 20.0

	StrokeWidth         = 1.5
	HoverStrokeWidth    = 3.0
	SelectedStrokeWidth = 4.0
	SelectedStroke      = "#ffff00"

	EdgeWidth   = 1.5
	EdgeOpacity = 0.7

	LabelOffsetX  = 18.0
	LabelOffsetY  = 4.0
	LabelFontSize = 14.0
	LabelWeight   = 600

	UnknownColor = "#777777"
)

var typeColors = map[cogmap.NodeType]string{
	cogmap.TypeCore:          "#3b82f6",
	cogmap.TypeSub:           "#22c55e",
	cogmap.TypeContradiction: "#ef4444",
	cogmap.TypeAdjacent:      "#f59e0b",
	cogmap.TypeExample:       "#a855f7",
}

// NodeColor is the fill for a node type; unknown types are gray.
func NodeColor(t cogmap.NodeType) string {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return UnknownColor
}

// Palette holds the theme dependent colours. Node fills never change with
// the theme.
type Palette struct {
	Edge   string `json:"edge"`
	Stroke string `json:"stroke"`
	Label  string `json:"label"`
}

// PaletteFor returns the light or dark palette.
func PaletteFor(dark bool) Palette {
	if dark {
		return Palette{Edge: "#aaaaaa", Stroke: "#cccccc", Label: "#e5e7eb"}
	}
	return Palette{Edge: "#555555", Stroke: "#ffffff", Label: "#111111"}
}
