// Package kiosk serves the touchscreen HTTP API and its event stream.
package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/conversation"
	"github.com/sells-group/showroom-assistant/internal/inventory"
	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/speech"
	"github.com/sells-group/showroom-assistant/internal/store"
)

// Conversation is the orchestrator surface the API drives.
type Conversation interface {
	Send(ctx context.Context, text string) (*model.Message, error)
	Snapshot() conversation.Snapshot
	Reset() error
	SetCustomerName(name string)
	SetStep(step string)
	SelectVehicle(ctx context.Context, stockNumber string) (model.Vehicle, error)
	Flush(ctx context.Context)
}

// Speech is the playback control surface.
type Speech interface {
	Stop()
	SetEnabled(enabled bool)
	Enabled() bool
	State() speech.State
}

// Sessions reads past session logs.
type Sessions interface {
	ListSessions(ctx context.Context, filter store.SessionFilter) ([]store.SessionSummary, error)
	GetSession(ctx context.Context, sessionID string) (*model.SessionLog, error)
}

// Breakers reports circuit breaker states by name.
type Breakers interface {
	States() map[string]string
}

// Options wires a Server. Speech, Sessions and Breakers are optional.
type Options struct {
	Conversation   Conversation
	Inventory      inventory.Source
	Speech         Speech
	Sessions       Sessions
	Breakers       Breakers
	AllowedOrigins []string
}

// Server is the kiosk API.
type Server struct {
	conv     Conversation
	inv      inventory.Source
	speech   Speech
	sessions Sessions
	breakers Breakers
	origins  []string
	hub      *Hub
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		conv:     opts.Conversation,
		inv:      opts.Inventory,
		speech:   opts.Speech,
		sessions: opts.Sessions,
		breakers: opts.Breakers,
		origins:  origins,
		hub:      NewHub(nil),
	}
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub { return s.hub }

// SpeechStateChanged publishes a speech event. It is safe to use as a
// speech.Options.OnStateChange callback.
func (s *Server) SpeechStateChanged(from, to speech.State) {
	s.hub.Publish(Event{Type: EventSpeech, Data: map[string]string{
		"from": from.String(),
		"to":   to.String(),
	}})
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{"status": "ok"}
		if s.breakers != nil {
			out["breakers"] = s.breakers.States()
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Post("/reset", s.handleReset)
			r.Put("/customer", s.handleCustomer)
			r.Put("/step", s.handleStep)
			r.Put("/vehicle", s.handleVehicle)
		})

		r.Get("/inventory/search", s.handleSearch)

		r.Post("/speech/stop", s.handleSpeechStop)
		r.Put("/speech/enabled", s.handleSpeechEnabled)

		r.Get("/sessions", s.handleSessions)
		r.Get("/sessions/{id}", s.handleSessionLog)

		r.Get("/events", s.hub.ServeHTTP)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("kiosk: shutting down server")
		s.hub.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			zap.L().Warn("kiosk: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("kiosk: starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "kiosk: listen")
	}
	return nil
}

type chatResponse struct {
	Message   *model.Message        `json:"message"`
	Objection model.ObjectionResult `json:"objection"`
	Profile   model.Profile         `json:"profile"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}

	msg, err := s.conv.Send(r.Context(), req.Message)
	switch {
	case errors.Is(err, conversation.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
		return
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
		return
	case err != nil:
		zap.L().Error("kiosk: chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	snap := s.conv.Snapshot()
	s.hub.Publish(Event{Type: EventMessage, Data: msg})
	writeJSON(w, http.StatusOK, chatResponse{
		Message:   msg,
		Objection: snap.Objection,
		Profile:   snap.Profile,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.conv.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.conv.Reset(); err != nil {
		if errors.Is(err, conversation.ErrBusy) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
			return
		}
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	s.respondSession(w)
}

func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.conv.SetCustomerName(req.Name)
	s.respondSession(w)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step string `json:"step"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Step == "" {
		writeError(w, http.StatusBadRequest, "step is required")
		return
	}
	s.conv.SetStep(req.Step)
	s.conv.Flush(r.Context())
	s.respondSession(w)
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StockNumber string `json:"stock_number"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.StockNumber == "" {
		writeError(w, http.StatusBadRequest, "stock_number is required")
		return
	}
	if _, err := s.conv.SelectVehicle(r.Context(), req.StockNumber); err != nil {
		if errors.Is(err, conversation.ErrVehicleNotFound) {
			writeError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		zap.L().Error("kiosk: select vehicle", zap.Error(err))
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}
	s.respondSession(w)
}

// respondSession answers with the current snapshot and pushes it to screens.
func (s *Server) respondSession(w http.ResponseWriter) {
	snap := s.conv.Snapshot()
	s.hub.Publish(Event{Type: EventSession, Data: snap})
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	vehicles, err := s.inv.List(r.Context())
	if err != nil {
		zap.L().Error("kiosk: list inventory", zap.Error(err))
		writeError(w, http.StatusBadGateway, "inventory unavailable")
		return
	}
	matches := inventory.Search(vehicles, q, limit)
	if matches == nil {
		matches = []model.Vehicle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "vehicles": matches})
}

func (s *Server) handleSpeechStop(w http.ResponseWriter, _ *http.Request) {
	if s.speech == nil {
		writeError(w, http.StatusNotImplemented, "speech is not configured")
		return
	}
	s.speech.Stop()
	writeJSON(w, http.StatusOK, s.speechStatus())
}

func (s *Server) handleSpeechEnabled(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		writeError(w, http.StatusNotImplemented, "speech is not configured")
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	s.speech.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, s.speechStatus())
}

func (s *Server) speechStatus() map[string]any {
	return map[string]any{
		"enabled": s.speech.Enabled(),
		"state":   s.speech.State().String(),
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotImplemented, "session store is not configured")
		return
	}
	q := r.URL.Query()
	filter := store.SessionFilter{CustomerName: q.Get("customer")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = t
	}

	list, err := s.sessions.ListSessions(r.Context(), filter)
	if err != nil {
		zap.L().Error("kiosk: list sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list sessions failed")
		return
	}
	if list == nil {
		list = []store.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotImplemented, "session store is not configured")
		return
	}
	log, err := s.sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		zap.L().Error("kiosk: get session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get session failed")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("kiosk: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
