package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/logging"
	"github.com/ritzau/mindmesh/pkg/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueue      = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Messages sent to the browser.
const (
	msgFrame = "frame"
	msgClear = "clear"
	msgError = "error"
)

type serverMessage struct {
	Type  string        `json:"type"`
	Frame *render.Frame `json:"frame,omitempty"`
	Error string        `json:"error,omitempty"`
}

func frameMessage(f render.Frame) []byte {
	data, _ := json.Marshal(serverMessage{Type: msgFrame, Frame: &f})
	return data
}

func clearMessage() []byte {
	data, _ := json.Marshal(serverMessage{Type: msgClear})
	return data
}

func errorMessage(err error) []byte {
	data, _ := json.Marshal(serverMessage{Type: msgError, Error: err.Error()})
	return data
}

// pointerEvent is what the browser sends. ID may be empty for hover and
// click, in which case the node under (X, Y) is used.
type pointerEvent struct {
	Type string    `json:"type"`
	ID   cogmap.ID `json:"id"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans frames out to the websocket clients of one page.
type hub struct {
	page    string
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub(page string) *hub {
	return &hub{page: page, clients: make(map[*client]struct{})}
}

func (h *hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast queues msg for every client. A client whose queue is full
// misses the message; the next frame supersedes it anyway.
func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logging.Trace("dropping frame for slow client", "page", h.page)
		}
	}
}

// sendTo queues msg for one client.
func (h *hub) sendTo(c *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	if !p.hub.register(c) {
		conn.Close()
		return
	}
	logging.DebugContext(r.Context(), "websocket client connected", "page", p.Name)

	if frame, drawn := p.Renderer.Frame(); drawn {
		p.hub.sendTo(c, frameMessage(frame))
	}

	go writePump(c)
	s.readPump(p, c)

	logging.DebugContext(r.Context(), "websocket client disconnected", "page", p.Name)
}

func writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(p *Page, c *client) {
	defer func() {
		p.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev pointerEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("websocket read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := handlePointer(p.Renderer, ev); err != nil {
			if !errors.Is(err, render.ErrNoScene) {
				p.hub.sendTo(c, errorMessage(err))
			}
			logging.Trace("pointer event ignored", "page", p.Name, "type", ev.Type, "error", err)
		}
	}
}

var errUnknownEvent = errors.New("unknown pointer event")

// handlePointer applies one browser pointer event to the renderer.
func handlePointer(r *render.Renderer, ev pointerEvent) error {
	id := ev.ID
	if id == "" && (ev.Type == "hover" || ev.Type == "click") {
		hit, ok := r.NodeAt(ev.X, ev.Y)
		if !ok {
			return nil
		}
		id = hit
	}

	switch ev.Type {
	case "hover":
		return r.Hover(id)
	case "leave":
		return r.Leave(id)
	case "click":
		_, err := r.Click(id)
		return err
	case "dragstart":
		return r.DragStart(id)
	case "drag":
		return r.DragMove(id, ev.X, ev.Y)
	case "dragend":
		return r.DragEnd(id)
	}
	return errUnknownEvent
}
