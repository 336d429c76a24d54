package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nlweb/chatpanel/internal/chat"
	"github.com/nlweb/chatpanel/internal/panel"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// panelResponse is the outgoing WebSocket message format.
type panelResponse struct {
	Type         string      `json:"type"` // "render" or "error"
	SessionID    string      `json:"session_id"`
	Content      string      `json:"content,omitempty"`
	SelectorHTML string      `json:"selector_html,omitempty"`
	DebugHTML    string      `json:"debug_html"`
	ResultsHTML  string      `json:"results_html"`
	State        *chat.State `json:"state,omitempty"`
}

// socket serializes writes to one connection.
type socket struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *zap.Logger
}

func (c *socket) send(resp panelResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(resp); err != nil {
		c.logger.Debug("websocket write", zap.Error(err))
	}
}

// handleWebSocket bridges browser events to the session's panel and sends
// back the re-rendered fragments after each event that changed something.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	p, ok := s.pages.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	sock := &socket{conn: conn, logger: s.logger.With(zap.String("session", id))}

	// A connected page is never swept, however long it sits idle.
	s.pages.connect(id)
	defer s.pages.disconnect(id)

	// A page served before the site list arrived gets the populated row
	// pushed once it is ready.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-p.panel.Ready():
			s.sendRender(sock, p)
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sock.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var ev panel.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.sendError(sock, p, "invalid message format")
			continue
		}

		changed, err := p.panel.Dispatch(ev)
		if err != nil {
			s.sendError(sock, p, err.Error())
			continue
		}
		s.pages.touch(id)
		// Re-rendering the row under a focused field or an open select
		// would discard what the user is doing.
		if changed {
			s.sendRender(sock, p)
		}
	}
}

func (s *Server) sendRender(sock *socket, p *page) {
	selector, debug, results, err := p.fragments()
	if err != nil {
		s.sendError(sock, p, "rendering failed: "+err.Error())
		return
	}
	st := p.session.State()
	sock.send(panelResponse{
		Type:         "render",
		SessionID:    p.session.ID(),
		SelectorHTML: selector,
		DebugHTML:    debug,
		ResultsHTML:  results,
		State:        &st,
	})
}

func (s *Server) sendError(sock *socket, p *page, message string) {
	sock.send(panelResponse{
		Type:      "error",
		SessionID: p.session.ID(),
		Content:   message,
	})
}
