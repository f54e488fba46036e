package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/logging"
)

// Complexity is the requested depth of a map.
type Complexity string

const (
	Beginner     Complexity = "beginner"
	Intermediate Complexity = "intermediate"
	Expert       Complexity = "expert"
)

// ParseComplexity maps "" onto the intermediate default and rejects
// anything else that is not a known level.
func ParseComplexity(s string) (Complexity, error) {
	switch c := Complexity(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return Intermediate, nil
	case Beginner, Intermediate, Expert:
		return c, nil
	}
	return "", fmt.Errorf("unknown complexity %q", s)
}

// Generic messages used when the service gives no reason.
const (
	FallbackMapMessage    = "Failed to generate cognitive map"
	FallbackFusionMessage = "Failed to generate fusion map"
)

// Generator is what the page controllers need from the service.
type Generator interface {
	RequestMap(ctx context.Context, topic string, complexity Complexity) (*cogmap.Map, error)
	RequestFusionMap(ctx context.Context, topicA, topicB string, complexity Complexity) (*cogmap.Map, error)
}

// Observer receives one call per finished request.
type Observer interface {
	ObserveRequest(kind string, outcome string, d time.Duration)
}

// Client talks to the remote generation service over HTTP JSON.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithObserver records request outcomes, e.g. into metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the service at baseURL. The URL is used
// verbatim in transport error messages.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpoint joins base and path without doubling the slash between them.
func endpoint(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}

type mapRequest struct {
	Topic      string     `json:"topic"`
	Complexity Complexity `json:"complexity"`
}

type fusionRequest struct {
	TopicA     string     `json:"topic_a"`
	TopicB     string     `json:"topic_b"`
	Complexity Complexity `json:"complexity"`
}

// RequestMap asks for a single-topic cognitive map.
func (c *Client) RequestMap(ctx context.Context, topic string, complexity Complexity) (*cogmap.Map, error) {
	if complexity == "" {
		complexity = Intermediate
	}
	body := mapRequest{Topic: topic, Complexity: complexity}
	return c.post(ctx, "/generate-map", body, cogmap.KindSingle, FallbackMapMessage)
}

// RequestFusionMap asks for a map of the intersection of two topics.
func (c *Client) RequestFusionMap(ctx context.Context, topicA, topicB string, complexity Complexity) (*cogmap.Map, error) {
	if complexity == "" {
		complexity = Intermediate
	}
	body := fusionRequest{TopicA: topicA, TopicB: topicB, Complexity: complexity}
	return c.post(ctx, "/fusion-map", body, cogmap.KindFusion, FallbackFusionMessage)
}

func (c *Client) post(ctx context.Context, path string, payload any, kind cogmap.Kind, fallback string) (m *cogmap.Map, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(kind.String(), outcome(err), time.Since(start))
		}
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(c.baseURL, path), bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{BaseURL: c.baseURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = logging.NewRequestID()
	}
	req.Header.Set(logging.RequestIDHeader, requestID)

	logging.DebugContext(ctx, "requesting map", "path", path, "kind", kind.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{BaseURL: c.baseURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, applicationError(resp, body, fallback)
	}

	m, err = cogmap.Decode(body, kind)
	if err != nil {
		return nil, &ApplicationError{Status: resp.StatusCode, Message: fallback, Err: err}
	}

	logging.DebugContext(ctx, "map received",
		"path", path,
		"nodes", len(m.Nodes),
		"links", len(m.Links),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return m, nil
}

// applicationError picks detail, then message, then the fallback; a body
// that is not JSON falls back to the status text. JSON that is not an object
// carries no reason and gets the fallback.
func applicationError(resp *http.Response, body []byte, fallback string) *ApplicationError {
	appErr := &ApplicationError{Status: resp.StatusCode, Message: fallback}

	if !json.Valid(body) {
		if text := statusText(resp); text != "" {
			appErr.Message = text
		}
		return appErr
	}

	var payload struct {
		Detail  any `json:"detail"`
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return appErr
	}

	if s := reason(payload.Detail); s != "" {
		appErr.Message = s
	} else if s := reason(payload.Message); s != "" {
		appErr.Message = s
	}
	return appErr
}

// reason accepts string reasons only; structured details (e.g. validation
// error lists) fall through to the next candidate.
func reason(v any) string {
	s, _ := v.(string)
	return s
}

// statusText is the reason phrase of the status line, e.g. "Bad Gateway".
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func outcome(err error) string {
	var transportErr *TransportError
	var appErr *ApplicationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &appErr):
		return "application_error"
	}
	return "error"
}
