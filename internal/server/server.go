// Package server exposes the HTTP control plane for the voice guide: session
// lifecycle, persona selection and read access to the conversation state.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cicerone-ai/cicerone/internal/persona"
	"github.com/cicerone-ai/cicerone/internal/session"
	"github.com/cicerone-ai/cicerone/internal/turns"
)

// Server routes control requests to the session controller.
type Server struct {
	ctrl    *session.Controller
	catalog *persona.Catalog
	log     *slog.Logger
}

// New creates a control server.
func New(ctrl *session.Controller, catalog *persona.Catalog, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{ctrl: ctrl, catalog: catalog, log: log}
}

// Register adds the control API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session/start", s.handleStart)
	mux.HandleFunc("POST /api/session/stop", s.handleStop)
	mux.HandleFunc("POST /api/session/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/personas", s.handlePersonas)
	mux.HandleFunc("POST /api/personas/{id}/activate", s.handleActivatePersona)
	mux.HandleFunc("GET /api/messages", s.handleMessages)
	mux.HandleFunc("GET /api/map", s.handleMap)
}

// sessionView is the JSON shape of the session resource.
type sessionView struct {
	State   string `json:"state"`
	Persona string `json:"persona"`
}

// personaView is the JSON shape of one catalog entry.
type personaView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Tagline string `json:"tagline,omitempty"`
	Voice   string `json:"voice"`
	Active  bool   `json:"active"`
}

// messageView is the JSON shape of one committed message.
type messageView struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Text      string         `json:"text"`
	Citations []citationView `json:"citations,omitempty"`
}

type citationView struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Start(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w)
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Toggle(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	s.writeSession(w)
}

func (s *Server) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	active := s.ctrl.Persona()
	personas := s.catalog.List()
	views := make([]personaView, 0, len(personas))
	for _, p := range personas {
		views = append(views, personaView{
			ID:      p.ID,
			Name:    p.Name,
			Role:    p.Role,
			Tagline: p.Tagline,
			Voice:   p.Voice(),
			Active:  p.ID == active,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleActivatePersona(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.catalog.Get(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err := s.ctrl.SwitchPersona(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSession(w)
}

func (s *Server) handleMessages(w http.ResponseWriter, _ *http.Request) {
	history := s.ctrl.History()
	views := make([]messageView, 0, len(history))
	for _, msg := range history {
		views = append(views, toMessageView(msg))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	ev, ok := s.ctrl.MapState()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"kind": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":        string(ev.Kind),
		"query":       ev.Query,
		"origin":      ev.Origin,
		"destination": ev.Destination,
	})
}

func (s *Server) writeSession(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, sessionView{
		State:   s.ctrl.State().String(),
		Persona: s.ctrl.Persona(),
	})
}

// writeError maps controller errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotIdle), errors.Is(err, session.ErrNotLive):
		status = http.StatusConflict
	case errors.Is(err, session.ErrDeviceUnavailable), errors.Is(err, session.ErrHandshakeFailed):
		status = http.StatusBadGateway
	}
	s.log.Warn("server: request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func toMessageView(msg turns.Message) messageView {
	v := messageView{
		ID:   msg.ID,
		Role: string(msg.Role),
		Text: msg.Text,
	}
	for _, c := range msg.Citations {
		v.Citations = append(v.Citations, citationView{Title: c.Title, URI: c.URI})
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
