package controller

import (
	"fmt"

	"github.com/ritzau/mindmesh/pkg/cogmap"
)

// State is the request lifecycle of a page.
type State int

const (
	Idle State = iota
	Loading
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Request is the form a user submits. Single-topic pages read Topic, fusion
// pages read TopicA and TopicB.
type Request struct {
	Topic      string `json:"topic,omitempty"`
	TopicA     string `json:"topic_a,omitempty"`
	TopicB     string `json:"topic_b,omitempty"`
	Complexity string `json:"complexity,omitempty"`
}

// Selection is the clicked node shown in the detail panel.
type Selection struct {
	Node cogmap.Node `json:"node"`
	Map  *cogmap.Map `json:"-"`
}

// Snapshot is a copy of everything a page displays.
type Snapshot struct {
	Kind          string      `json:"kind"`
	State         State       `json:"state"`
	Generation    uint64      `json:"generation"`
	Request       Request     `json:"request"`
	Map           *cogmap.Map `json:"map,omitempty"`
	Error         string      `json:"error,omitempty"`
	SelectedID    cogmap.ID   `json:"selectedId,omitempty"`
	Selected      *Selection  `json:"selected,omitempty"`
	PanelOpen     bool        `json:"panelOpen"`
	ShowReasoning bool        `json:"showReasoning"`
	DarkMode      bool        `json:"darkMode"`
}
