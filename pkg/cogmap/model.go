package cogmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ID is the canonical reference-by-id used for nodes and edge endpoints.
// The service may send ids as strings, numbers or embedded node objects;
// all of them decode into the same string form so "1" and 1 compare equal.
type ID string

// UnmarshalJSON accepts "a", 1, 1.0, true, null and {"id": ...}.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
	case '{':
		var obj struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*id = obj.ID
	case 't', 'f':
		*id = ID(string(data))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("unsupported id %s", data)
		}
		*id = ID(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

// NodeType classifies a node; it drives the node colour.
type NodeType string

const (
	TypeCore          NodeType = "core"
	TypeSub           NodeType = "sub"
	TypeContradiction NodeType = "contradiction"
	TypeAdjacent      NodeType = "adjacent"
	TypeExample       NodeType = "example"
)

// Known reports whether t is one of the five node types.
func (t NodeType) Known() bool {
	switch t {
	case TypeCore, TypeSub, TypeContradiction, TypeAdjacent, TypeExample:
		return true
	}
	return false
}

// Node is a vertex of the cognitive map.
type Node struct {
	ID          ID       `json:"id"`
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
}

// Edge connects two nodes by id.
type Edge struct {
	Source ID `json:"source"`
	Target ID `json:"target"`
}

// Kind tells single-topic maps from fusion maps.
type Kind int

const (
	KindSingle Kind = iota
	KindFusion
)

func (k Kind) String() string {
	if k == KindFusion {
		return "fusion"
	}
	return "single"
}

// Map is a cognitive map (one topic) or a fusion map (two topics).
// Links is nil when the payload had no array-typed graph_links.
type Map struct {
	Kind              Kind     `json:"-"`
	Topic             string   `json:"topic,omitempty"`
	TopicA            string   `json:"topic_a,omitempty"`
	TopicB            string   `json:"topic_b,omitempty"`
	CoreIdea          string   `json:"core_idea"`
	SubIdeas          []string `json:"sub_ideas"`
	Contradictions    []string `json:"contradictions"`
	AdjacentFields    []string `json:"adjacent_fields"`
	RealWorldExamples []string `json:"real_world_examples"`
	ReasoningTrail    string   `json:"reasoning_trail,omitempty"`
	Nodes             []Node   `json:"graph_nodes"`
	Links             []Edge   `json:"graph_links"`
}

// DisplayTopic is the topic shown in titles.
func (m *Map) DisplayTopic() string {
	if m.Topic != "" {
		return m.Topic
	}
	if m.TopicA != "" || m.TopicB != "" {
		return m.TopicA + " & " + m.TopicB
	}
	return ""
}

// Title is the printable document title.
func (m *Map) Title() string {
	return "Cognitive Map: " + m.DisplayTopic()
}

// Node returns the node with the given id.
func (m *Map) Node(id ID) (Node, bool) {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug replaces whitespace runs with a dash, for file names.
func Slug(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), "-")
}

// ImageFilename is cognitive-map-<topic>.png, or fusion-map-<a>-<b>.png for
// fusion maps.
func ImageFilename(kind Kind, topics ...string) string {
	prefix := "cognitive-map"
	if kind == KindFusion {
		prefix = "fusion-map"
	}
	parts := []string{prefix}
	for _, t := range topics {
		parts = append(parts, Slug(t))
	}
	return strings.Join(parts, "-") + ".png"
}
