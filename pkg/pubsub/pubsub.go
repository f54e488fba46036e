package pubsub

import (
	"context"
	"encoding/json"
)

// Event is one message published on a topic.
type Event struct {
	Topic   string          `json:"topic"`   // e.g. "page/home", "theme"
	Type    string          `json:"type"`    // e.g. "state"
	Data    json.RawMessage `json:"data"`    // payload
	Version int             `json:"version"` // per-topic sequence number
}

// Subscription receives the events of one topic until closed.
type Subscription interface {
	Topic() string

	// Events is closed when the subscription or the publisher closes.
	Events() <-chan Event

	Close() error
}

// Publisher fans events out to topic subscribers.
type Publisher interface {
	// Subscribe registers for topic; cancelling ctx closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	Publish(topic string, eventType string, data any) error

	Close() error
}

// ThemeTopic carries dark-mode changes.
const ThemeTopic = "theme"

// Event types.
const (
	EventState = "state"
	EventTheme = "theme"
)

// PageTopic is the topic carrying the state snapshots of a page.
func PageTopic(page string) string {
	return "page/" + page
}

// ThemeState is the payload of theme events.
type ThemeState struct {
	Dark bool `json:"dark"`
}
