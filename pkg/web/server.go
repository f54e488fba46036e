package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/controller"
	"github.com/ritzau/mindmesh/pkg/export"
	"github.com/ritzau/mindmesh/pkg/logging"
	"github.com/ritzau/mindmesh/pkg/metrics"
	"github.com/ritzau/mindmesh/pkg/preferences"
	"github.com/ritzau/mindmesh/pkg/pubsub"
	"github.com/ritzau/mindmesh/pkg/render"
)

//go:embed static/*
var staticFiles embed.FS

// Page names served by the viewer.
const (
	PageHome   = "home"
	PageFusion = "fusion"
)

// Page is one controller with the renderer it draws into.
type Page struct {
	Name       string
	Controller *controller.Controller
	Renderer   *render.Renderer

	hub *hub
}

// NewPage pairs a controller with its renderer under name.
func NewPage(name string, c *controller.Controller, r *render.Renderer) *Page {
	return &Page{Name: name, Controller: c, Renderer: r, hub: newHub(name)}
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	pages     map[string]*Page
	theme     *preferences.Theme
	metrics   *metrics.Collector
}

// NewServer wires pages, the theme and (optionally) metrics into a router.
// Every controller change is published on the page's SSE topic and every
// renderer frame is pushed to the page's websocket clients.
func NewServer(theme *preferences.Theme, collector *metrics.Collector, pages ...*Page) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// theme: replay the current value only
	ssePublisher.ConfigureTopic(pubsub.ThemeTopic, pubsub.TopicConfig{BufferSize: 1})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		pages:     make(map[string]*Page, len(pages)),
		theme:     theme,
		metrics:   collector,
	}

	for _, p := range pages {
		s.pages[p.Name] = p
		s.wirePage(p)
	}

	if theme != nil {
		_ = ssePublisher.Publish(pubsub.ThemeTopic, pubsub.EventTheme, pubsub.ThemeState{Dark: theme.Dark()})
		theme.Subscribe(func(dark bool) {
			for _, p := range s.pages {
				p.Controller.SetDarkMode(dark)
			}
			if err := ssePublisher.Publish(pubsub.ThemeTopic, pubsub.EventTheme, pubsub.ThemeState{Dark: dark}); err != nil {
				logging.Debug("theme not published", "error", err)
			}
		})
	}

	s.setupRoutes()
	return s
}

func (s *Server) wirePage(p *Page) {
	topic := pubsub.PageTopic(p.Name)
	// page state: buffer the latest snapshot for new subscribers
	s.publisher.ConfigureTopic(topic, pubsub.TopicConfig{BufferSize: 1})
	_ = s.publisher.Publish(topic, pubsub.EventState, p.Controller.Snapshot())

	p.Controller.Subscribe(func(snap controller.Snapshot) {
		if err := s.publisher.Publish(topic, pubsub.EventState, snap); err != nil {
			logging.Debug("snapshot not published", "page", p.Name, "error", err)
		}
		if snap.Map == nil {
			p.hub.broadcast(clearMessage())
		}
	})
	p.Renderer.OnFrame(func(f render.Frame) {
		p.hub.broadcast(frameMessage(f))
	})
}

// Handler returns the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/theme", s.handleSubscribeTheme).Methods("GET")
	s.router.HandleFunc("/api/subscribe/{page}", s.handleSubscribePage).Methods("GET")

	// Live graph view
	s.router.HandleFunc("/ws/{page}", s.handleWebSocket).Methods("GET")

	// API routes
	s.router.HandleFunc("/api/theme", s.handleTheme).Methods("GET")
	s.router.HandleFunc("/api/theme", s.handleSetTheme).Methods("PUT")
	s.router.HandleFunc("/api/pages/{page}", s.handleSnapshot).Methods("GET")
	s.router.HandleFunc("/api/pages/{page}/generate", s.handleGenerate).Methods("POST")
	s.router.HandleFunc("/api/pages/{page}/select", s.handleSelect).Methods("POST")
	s.router.HandleFunc("/api/pages/{page}/close", s.handleClose).Methods("POST")
	s.router.HandleFunc("/api/pages/{page}/reasoning", s.handleReasoning).Methods("POST")
	s.router.HandleFunc("/api/pages/{page}/reset", s.handleReset).Methods("POST")
	s.router.HandleFunc("/api/pages/{page}/export.png", s.handleExportImage).Methods("GET")
	s.router.HandleFunc("/api/pages/{page}/export.html", s.handleExportDocument).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to load static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// page resolves the {page} route variable, writing a 404 when unknown.
func (s *Server) page(w http.ResponseWriter, r *http.Request) (*Page, bool) {
	name := mux.Vars(r)["page"]
	p, ok := s.pages[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown page %q", name))
	}
	return p, ok
}

// statusFor maps controller and renderer errors to HTTP statuses.
func statusFor(err error) int {
	var verr *controller.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrBusy), errors.Is(err, controller.ErrNoMap):
		return http.StatusConflict
	case errors.Is(err, render.ErrUnknownNode):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleSubscribeTheme(w http.ResponseWriter, r *http.Request) {
	pubsub.ServeSSE(w, r, s.publisher, pubsub.ThemeTopic)
}

func (s *Server) handleSubscribePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	pubsub.ServeSSE(w, r, s.publisher, pubsub.PageTopic(p.Name))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Controller.Snapshot())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}

	var req controller.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Controller.Submit(r.Context(), req); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, p.Controller.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}

	var body struct {
		ID cogmap.ID `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Controller.SelectNode(body.ID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p.Controller.Snapshot())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	p.Controller.ClosePanel()
	writeJSON(w, http.StatusOK, p.Controller.Snapshot())
}

func (s *Server) handleReasoning(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	p.Controller.ToggleReasoningTrail()
	writeJSON(w, http.StatusOK, p.Controller.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	p.Controller.Reset()
	writeJSON(w, http.StatusOK, p.Controller.Snapshot())
}

func (s *Server) handleExportImage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}

	download := export.DownloaderFunc(func(filename string, data []byte) error {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, err := w.Write(data)
		return err
	})
	if err := p.Controller.ExportImage(download); err != nil {
		logging.WarnContext(r.Context(), "image export failed", "page", p.Name, "error", err)
		writeError(w, statusFor(err), err.Error())
	}
}

func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}

	autoPrint := r.URL.Query().Get("print") != ""
	printer := export.PrinterFunc(func(ctx context.Context, doc export.Document) error {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		return doc.WriteHTML(w, autoPrint)
	})
	if err := p.Controller.ExportDocument(r.Context(), printer); err != nil {
		logging.WarnContext(r.Context(), "document export failed", "page", p.Name, "error", err)
		writeError(w, statusFor(err), err.Error())
	}
}

type themeBody struct {
	Dark bool `json:"dark"`
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if s.theme == nil {
		writeJSON(w, http.StatusOK, themeBody{})
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Dark: s.theme.Dark()})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if s.theme == nil {
		writeError(w, http.StatusNotImplemented, "no theme store")
		return
	}

	var body themeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.theme.SetDark(body.Dark); err != nil {
		logging.ErrorContext(r.Context(), "failed to save theme", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Dark: s.theme.Dark()})
}

// Close ends all SSE streams and websocket connections.
func (s *Server) Close() {
	s.publisher.Close()
	for _, p := range s.pages {
		p.hub.close()
	}
}

// ListenAndServe serves on port until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
