package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nlweb/chatpanel/internal/chat"
	"github.com/nlweb/chatpanel/internal/sites"
)

// handlePage opens a new session and renders its page. The site list gets
// ReadyTimeout to arrive; after that the page is served with the dropdown
// still loading and the socket pushes the populated row later.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if n := s.pages.sweep(time.Now()); n > 0 {
		s.logger.Debug("dropped idle pages", zap.Int("count", n))
	}

	session := chat.NewSession(s.cfg.DefaultSite, s.cfg.DefaultMode)
	// The fetch outlives this request; the page stays open in the browser.
	p, err := newPage(context.WithoutCancel(r.Context()), session, s.lister, s.cfg.UseTextInputForSite, s.logger)
	if err != nil {
		s.logger.Error("building page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.pages.add(p)

	if s.cfg.ReadyTimeout > 0 {
		t := time.NewTimer(s.cfg.ReadyTimeout)
		select {
		case <-p.panel.Ready():
		case <-t.C:
		case <-r.Context().Done():
		}
		t.Stop()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.render(w); err != nil {
		s.logger.Warn("rendering page", zap.String("session", session.ID()), zap.Error(err))
	}
}

// handleSites serves the catalog in the sites message format. With
// streaming=true the same message is sent as a single server-sent event.
func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	names, err := s.catalog.Names(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	resp := sites.Response{MessageType: sites.MessageType, Sites: sites.Normalize(names)}

	if r.URL.Query().Get("streaming") == "true" {
		data, err := json.Marshal(resp)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		fmt.Fprintf(w, "data: %s\n\n", data)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pages.get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, p.session.State())
}

// handleAddResults appends results to a session, as the chat backend would
// while answering a query.
func (s *Server) handleAddResults(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pages.get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	var results []chat.Result
	if err := json.NewDecoder(r.Body).Decode(&results); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	p.session.AddResults(results...)
	writeJSON(w, http.StatusOK, p.session.State())
}

// handleAddMessage appends one chat turn to a session's conversation.
func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pages.get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	var msg chat.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || msg.Role == "" || msg.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role and content are required"})
		return
	}
	p.session.AddMessage(msg)
	writeJSON(w, http.StatusOK, p.session.State())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
