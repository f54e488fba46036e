package export

import (
	"html/template"
	"io"

	"github.com/ritzau/mindmesh/pkg/cogmap"
)

// NoTrail is printed when a map has no reasoning trail.
const NoTrail = "No reasoning trail available."

// Section is one heading of the printable document, with either a paragraph
// or a bullet list.
type Section struct {
	Heading   string
	Text      string
	Items     []string
	Highlight bool
}

// Document is the printable summary of a map.
type Document struct {
	Title    string
	Sections []Section
}

// BuildDocument lays out m in print order: reasoning trail, core idea,
// sub-ideas, contradictions, adjacent fields, real-world examples.
func BuildDocument(m *cogmap.Map) Document {
	trail := m.ReasoningTrail
	if trail == "" {
		trail = NoTrail
	}
	return Document{
		Title: m.Title(),
		Sections: []Section{
			{Heading: "Reasoning Trail", Text: trail, Highlight: true},
			{Heading: "Core Idea", Text: m.CoreIdea},
			{Heading: "Sub-ideas", Items: m.SubIdeas},
			{Heading: "Contradictions", Items: m.Contradictions},
			{Heading: "Adjacent Fields", Items: m.AdjacentFields},
			{Heading: "Real-world Examples", Items: m.RealWorldExamples},
		},
	}
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Doc.Title}}</title>
    <style>
      body { font-family: Arial, sans-serif; padding: 20px; }
      h1 { color: #1f2937; }
      h2 { color: #374151; margin-top: 20px; }
      .reasoning { background: #f3f4f6; padding: 15px; border-radius: 8px; margin: 20px 0; }
    </style>
  </head>
  <body{{if .AutoPrint}} onload="window.print()"{{end}}>
    <h1>{{.Doc.Title}}</h1>
{{- range .Doc.Sections}}
    {{if .Highlight}}<div class="reasoning">{{end}}
    <h2>{{.Heading}}</h2>
    {{- if .Items}}
    <ul>
      {{- range .Items}}
      <li>{{.}}</li>
      {{- end}}
    </ul>
    {{- else if .Text}}
    <p>{{.Text}}</p>
    {{- else}}
    <ul></ul>
    {{- end}}
    {{if .Highlight}}</div>{{end}}
{{- end}}
  </body>
</html>
`))

// WriteHTML renders the document as a standalone page. With autoPrint the
// page opens the print dialog once loaded.
func (d Document) WriteHTML(w io.Writer, autoPrint bool) error {
	return documentTemplate.Execute(w, struct {
		Doc       Document
		AutoPrint bool
	}{d, autoPrint})
}
