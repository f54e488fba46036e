package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ritzau/mindmesh/pkg/logging"
)

// ErrClosed is returned once the publisher has shut down.
var ErrClosed = errors.New("publisher is closed")

// TopicConfig configures buffering for a topic.
type TopicConfig struct {
	BufferSize int  // events kept for late subscribers, 0 disables replay
	ReplayAll  bool // replay the whole buffer instead of the last event
}

// SSEPublisher is an in-process Publisher whose subscribers are usually
// Server-Sent Events streams.
type SSEPublisher struct {
	mu            sync.Mutex
	subscriptions map[string]map[*sseSubscription]struct{}
	version       map[string]int
	buffer        map[string][]Event
	config        map[string]TopicConfig
	queueSize     int
	closed        bool
}

// NewSSEPublisher creates an open publisher.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]struct{}),
		version:       make(map[string]int),
		buffer:        make(map[string][]Event),
		config:        make(map[string]TopicConfig),
		queueSize:     100,
	}
}

// ConfigureTopic sets the buffering of topic.
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config[topic] = config
}

// Subscribe implements Publisher. Buffered events are replayed before any
// new event is delivered.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, p.queueSize),
		publisher: p,
		done:      make(chan struct{}),
	}
	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]struct{})
	}
	p.subscriptions[topic][sub] = struct{}{}

	replay := p.buffer[topic]
	if !p.config[topic].ReplayAll && len(replay) > 1 {
		replay = replay[len(replay)-1:]
	}
	for _, event := range replay {
		sub.deliver(event)
	}
	if len(replay) > 0 {
		logging.Trace("replayed events", "topic", topic, "count", len(replay))
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish implements Publisher. Slow subscribers lose events rather than
// blocking the publisher.
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.version[topic]++
	event := Event{Topic: topic, Type: eventType, Data: payload, Version: p.version[topic]}

	if size := p.config[topic].BufferSize; size > 0 {
		buf := append(p.buffer[topic], event)
		if len(buf) > size {
			buf = buf[len(buf)-size:]
		}
		p.buffer[topic] = buf
	}

	for sub := range p.subscriptions[topic] {
		sub.deliver(event)
	}
	return nil
}

// Close shuts the publisher down and ends every subscription.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, subs := range p.subscriptions {
		for sub := range subs {
			sub.finish()
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]struct{})
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subscriptions[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
	sub.finish()
}

// sseSubscription's channel is only written and closed with the publisher
// lock held.
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	done      chan struct{}
	finished  bool
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

func (s *sseSubscription) Close() error {
	s.publisher.unsubscribe(s)
	return nil
}

func (s *sseSubscription) deliver(event Event) {
	if s.finished {
		return
	}
	select {
	case s.events <- event:
	default:
		logging.Warn("subscription queue full, dropping event", "topic", s.topic, "version", event.Version)
	}
}

func (s *sseSubscription) finish() {
	if s.finished {
		return
	}
	s.finished = true
	close(s.events)
	close(s.done)
}

// WriteSSE writes event as one "data:" frame.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// ServeSSE streams topic to the client until it disconnects or the
// publisher closes.
func ServeSSE(w http.ResponseWriter, r *http.Request, p Publisher, topic string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	sub, err := p.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Safari needs a first byte before it considers the stream open.
	fmt.Fprint(w, ": connected\n\n")
	flush()

	for event := range sub.Events() {
		if err := WriteSSE(w, event); err != nil {
			logging.DebugContext(r.Context(), "sse client gone", "topic", topic, "error", err)
			return
		}
		flush()
	}
}
