package cogmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidShape marks a payload that is valid JSON but lacks a usable graph.
var ErrInvalidShape = errors.New("Invalid data received from server")

// wireMap overlays the graph fields with raw messages so their shape can be
// checked instead of failing the whole decode.
type wireMap struct {
	Map
	RawNodes json.RawMessage `json:"graph_nodes"`
	RawLinks json.RawMessage `json:"graph_links"`
}

// Decode parses a service payload. Only a body that is not JSON at all is
// an error. Any other top-level value decodes to an empty map, and a missing
// or malformed graph is left for CheckShape.
func Decode(data []byte, kind Kind) (*Map, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("decoding map: %w", errNotJSON)
	}
	if !isObject(data) {
		return &Map{Kind: kind}, nil
	}

	var w wireMap
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding map: %w", err)
	}

	m := w.Map
	m.Kind = kind
	m.Nodes = decodeNodes(w.RawNodes)
	m.Links = decodeLinks(w.RawLinks)
	return &m, nil
}

var errNotJSON = errors.New("body is not valid JSON")

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func decodeNodes(raw json.RawMessage) []Node {
	if !isArray(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	nodes := make([]Node, len(items))
	for i, item := range items {
		// A malformed entry stays a zero node; Normalize backfills it.
		_ = json.Unmarshal(item, &nodes[i])
	}
	return nodes
}

func decodeLinks(raw json.RawMessage) []Edge {
	if !isArray(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	links := make([]Edge, len(items))
	for i, item := range items {
		// Unreadable endpoints stay empty and surface as unresolved edges.
		_ = json.Unmarshal(item, &links[i])
	}
	return links
}

// CheckShape requires at least one node and an array of links.
func (m *Map) CheckShape() error {
	if m == nil || len(m.Nodes) == 0 || m.Links == nil {
		return ErrInvalidShape
	}
	return nil
}
