package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ritzau/mindmesh/pkg/controller"
	"github.com/ritzau/mindmesh/pkg/forcegraph"
	"github.com/ritzau/mindmesh/pkg/generate"
	"github.com/ritzau/mindmesh/pkg/metrics"
	"github.com/ritzau/mindmesh/pkg/preferences"
	"github.com/ritzau/mindmesh/pkg/render"
)

const mapReply = `{
	"topic": "Graph Theory",
	"core_idea": "Networks of vertices",
	"sub_ideas": ["Trees"],
	"contradictions": [],
	"adjacent_fields": ["Topology"],
	"real_world_examples": ["Road maps"],
	"graph_nodes": [
		{"id": 1, "type": "core", "label": "Graphs"},
		{"id": 2, "type": "sub", "label": "Trees"}
	],
	"graph_links": [{"source": 1, "target": 2}]
}`

type fixture struct {
	server  *Server
	http    *httptest.Server
	store   *preferences.MemoryStore
	theme   *preferences.Theme
	home    *Page
	metrics *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, mapReply)
	}))
	t.Cleanup(backend.Close)

	collector := metrics.NewCollector("mindmesh")
	client := generate.NewClient(backend.URL, generate.WithObserver(collector))

	opts := forcegraph.DefaultOptions()
	opts.TickInterval = time.Millisecond

	homeRenderer := render.NewRenderer(opts, forcegraph.WithTickObserver(collector))
	fusionRenderer := render.NewRenderer(opts)
	t.Cleanup(homeRenderer.Close)
	t.Cleanup(fusionRenderer.Close)

	store := &preferences.MemoryStore{}
	theme := preferences.NewTheme(store)

	home := NewPage(PageHome, controller.NewSingle(client, homeRenderer), homeRenderer)
	fusion := NewPage(PageFusion, controller.NewFusion(client, fusionRenderer), fusionRenderer)

	s := NewServer(theme, collector, home, fusion)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		srv.Close()
	})

	return &fixture{server: s, http: srv, store: store, theme: theme, home: home, metrics: collector}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, f.http.URL+path, reader)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (f *fixture) generate(t *testing.T) controller.Snapshot {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/pages/home/generate", controller.Request{Topic: "Graph Theory"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("generate status = %d: %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := f.home.Controller.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != controller.Success {
		t.Fatalf("state = %v (%s)", snap.State, snap.Error)
	}
	return snap
}

func TestGenerateSelectAndExport(t *testing.T) {
	f := newFixture(t)
	f.generate(t)

	resp, body := f.do(t, http.MethodGet, "/api/pages/home", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status = %d", resp.StatusCode)
	}
	var snap struct {
		State string `json:"state"`
		Map   struct {
			ReasoningTrail string `json:"reasoning_trail"`
		} `json:"map"`
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "success" || snap.Map.ReasoningTrail == "" {
		t.Errorf("snapshot = %s", body)
	}

	resp, body = f.do(t, http.MethodPost, "/api/pages/home/select", map[string]string{"id": "2"})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"panelOpen":true`) {
		t.Errorf("select = %d %s", resp.StatusCode, body)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/pages/home/select", map[string]string{"id": "99"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown node status = %d", resp.StatusCode)
	}

	resp, body = f.do(t, http.MethodGet, "/api/pages/home/export.png", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export.png status = %d: %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "cognitive-map-Graph-Theory.png") {
		t.Errorf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("export is not a PNG")
	}

	resp, body = f.do(t, http.MethodGet, "/api/pages/home/export.html?print=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export.html status = %d", resp.StatusCode)
	}
	for _, want := range []string{"Cognitive Map: Graph Theory", "window.print()", "Road maps"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		want   string
	}{
		{"blank topic", "/api/pages/home/generate", controller.Request{Topic: "  "}, http.StatusBadRequest, controller.MsgEnterTopic},
		{"blank fusion topic", "/api/pages/fusion/generate", controller.Request{TopicA: "a"}, http.StatusBadRequest, controller.MsgEnterBothTopics},
		{"bad complexity", "/api/pages/home/generate", controller.Request{Topic: "x", Complexity: "guru"}, http.StatusBadRequest, "complexity"},
		{"unknown page", "/api/pages/nope/generate", controller.Request{Topic: "x"}, http.StatusNotFound, "unknown page"},
		{"bad body", "/api/pages/home/generate", "not an object", http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body %s does not mention %q", body, tt.want)
			}
		})
	}
}

func TestExportWithoutMap(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/api/pages/home/export.png", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestThemeRoundTrip(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPut, "/api/theme", map[string]bool{"dark": true})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"dark":true`) {
		t.Fatalf("put theme = %d %s", resp.StatusCode, body)
	}
	if p, _ := f.store.Load(); !p.DarkMode {
		t.Error("preference not saved")
	}
	if !f.home.Controller.Snapshot().DarkMode {
		t.Error("page not switched to dark")
	}

	_, body = f.do(t, http.MethodGet, "/api/theme", nil)
	if !strings.Contains(string(body), `"dark":true`) {
		t.Errorf("get theme = %s", body)
	}
}

func TestResetAndPanels(t *testing.T) {
	f := newFixture(t)
	f.generate(t)

	_, body := f.do(t, http.MethodPost, "/api/pages/home/reasoning", nil)
	if !strings.Contains(string(body), `"showReasoning":true`) {
		t.Errorf("reasoning = %s", body)
	}
	f.do(t, http.MethodPost, "/api/pages/home/close", nil)
	_, body = f.do(t, http.MethodPost, "/api/pages/home/reset", nil)
	if !strings.Contains(string(body), `"state":"idle"`) {
		t.Errorf("reset = %s", body)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn, match func(serverMessage) bool) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketFramesAndHover(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws/home"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	f.generate(t)

	msg := readMessage(t, conn, func(m serverMessage) bool {
		return m.Type == msgFrame && m.Frame != nil && len(m.Frame.Nodes) == 2
	})
	if msg.Frame.Nodes[0].Radius != render.NodeRadius {
		t.Errorf("resting radius = %v", msg.Frame.Nodes[0].Radius)
	}

	if err := conn.WriteJSON(pointerEvent{Type: "hover", ID: "1"}); err != nil {
		t.Fatal(err)
	}
	readMessage(t, conn, func(m serverMessage) bool {
		if m.Frame == nil {
			return false
		}
		n, ok := m.Frame.Node("1")
		return ok && n.Hovered && n.Radius == render.HoverRadius
	})

	if err := conn.WriteJSON(pointerEvent{Type: "click", ID: "2"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for f.home.Controller.Snapshot().SelectedID != "2" {
		if time.Now().After(deadline) {
			t.Fatal("click did not select node")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := conn.WriteJSON(pointerEvent{Type: "wiggle", ID: "1"}); err != nil {
		t.Fatal(err)
	}
	readMessage(t, conn, func(m serverMessage) bool { return m.Type == msgError })

	f.do(t, http.MethodPost, "/api/pages/home/reset", nil)
	readMessage(t, conn, func(m serverMessage) bool { return m.Type == msgClear })
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.generate(t)

	_, body := f.do(t, http.MethodGet, "/metrics", nil)
	for _, want := range []string{
		"mindmesh_http_requests_total",
		`mindmesh_generation_requests_total{kind="single",outcome="success"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStaticIndex(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "MindMesh") {
		t.Errorf("index = %d", resp.StatusCode)
	}
}
