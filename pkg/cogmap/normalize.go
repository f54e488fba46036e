package cogmap

import "fmt"

// Default reasoning trails used when the service sends none.
const (
	DefaultTrail       = "This cognitive map explores the relationships and connections within the topic."
	DefaultFusionTrail = "This cognitive map explores intersections and connections between the two topics."
)

// Normalize backfills node fields and the reasoning trail. It runs once,
// right after a fetch; on an already complete map it changes nothing.
func (m *Map) Normalize(defaultTrail string) {
	for i := range m.Nodes {
		m.Nodes[i] = normalizeNode(m.Nodes[i], i)
	}
	if m.ReasoningTrail == "" {
		m.ReasoningTrail = defaultTrail
	}
}

func normalizeNode(n Node, index int) Node {
	if n.ID == "" {
		n.ID = ID(fmt.Sprintf("node_%d", index))
	}
	if !n.Type.Known() {
		n.Type = TypeSub
	}
	if n.Label == "" {
		n.Label = fmt.Sprintf("Node %d", index+1)
	}
	if n.Description == "" {
		n.Description = fmt.Sprintf("This %s represents: %s", n.Type, n.Label)
	}
	return n
}
