// Package output prints cognitive maps to the console.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/export"
)

var typeColors = map[cogmap.NodeType]*color.Color{
	cogmap.TypeCore:          color.New(color.FgBlue, color.Bold),
	cogmap.TypeSub:           color.New(color.FgGreen),
	cogmap.TypeContradiction: color.New(color.FgRed),
	cogmap.TypeAdjacent:      color.New(color.FgYellow),
	cogmap.TypeExample:       color.New(color.FgMagenta),
}

func nodeColor(t cogmap.NodeType) *color.Color {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return color.New(color.FgHiBlack)
}

// PrintMapReport prints the sections of m in document order followed by the
// graph's nodes, coloured by type.
func PrintMapReport(w io.Writer, m *cogmap.Map) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	doc := export.BuildDocument(m)

	// Header
	bold.Fprintln(w, doc.Title)
	bold.Fprintln(w, strings.Repeat("=", len([]rune(doc.Title))))
	fmt.Fprintln(w)

	for _, section := range doc.Sections {
		cyan.Fprintf(w, "%s\n", section.Heading)
		switch {
		case section.Text == "" && !section.Highlight:
			if len(section.Items) == 0 {
				faint.Fprintln(w, "  (none)")
			}
			for _, item := range section.Items {
				fmt.Fprintf(w, "  - %s\n", item)
			}
		case section.Highlight:
			faint.Fprintf(w, "  %s\n", section.Text)
		default:
			fmt.Fprintf(w, "  %s\n", section.Text)
		}
		fmt.Fprintln(w)
	}

	cyan.Fprintf(w, "Graph: %d nodes, %d links\n", len(m.Nodes), len(m.Links))
	for _, n := range m.Nodes {
		nodeColor(n.Type).Fprintf(w, "  %-13s", n.Type)
		fmt.Fprintf(w, " %s", n.Label)
		if n.Description != "" {
			faint.Fprintf(w, "  %s", n.Description)
		}
		fmt.Fprintln(w)
	}
}

// PrintError prints a failed generation the way the page shows it.
func PrintError(w io.Writer, message string) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "Error: %s\n", message)
}

// PrintSaved reports a file written by an export.
func PrintSaved(w io.Writer, what, path string) {
	color.New(color.FgGreen).Fprintf(w, "✓ %s saved to %s\n", what, path)
}
