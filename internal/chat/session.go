// Package chat holds the server-side state of a chat debug page.
package chat

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nlweb/chatpanel/internal/panel"
)

// Result is one item returned by the chat backend.
type Result struct {
	Name  string  `json:"name"`
	URL   string  `json:"url"`
	Site  string  `json:"site,omitempty"`
	Score float64 `json:"score"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is a snapshot of a session.
type State struct {
	ID           string    `json:"id"`
	Site         string    `json:"site"`
	GenerateMode string    `json:"generate_mode"`
	DebugMode    bool      `json:"debug_mode"`
	ContextURL   string    `json:"context_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Messages     []Message `json:"messages"`
	Results      []Result  `json:"results"`
	Resets       int       `json:"resets"`
}

// Session is one chat interface. It is the host of a selector panel.
type Session struct {
	mu           sync.Mutex
	id           string
	createdAt    time.Time
	site         string
	generateMode string
	debugMode    bool
	messages     []Message
	results      []Result
	resets       int
	controls     panel.Controls
}

// NewSession creates a session with the given starting site and mode.
// An empty site is left unset for the panel to choose.
func NewSession(site, mode string) *Session {
	if mode == "" {
		mode = panel.Modes[0]
	}
	return &Session{
		id:           uuid.New().String(),
		createdAt:    time.Now().UTC(),
		site:         site,
		generateMode: mode,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

func (s *Session) Site() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.site
}

func (s *Session) SetSite(site string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.site = site
}

func (s *Session) GenerateMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateMode
}

func (s *Session) SetGenerateMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateMode = mode
}

func (s *Session) DebugMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugMode
}

func (s *Session) SetDebugMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugMode = on
}

// ResetChatState drops the conversation and its results. Site, mode and
// debug mode are kept.
func (s *Session) ResetChatState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.results = nil
	s.resets++
}

// CreateDebugString renders the session state as indented JSON.
func (s *Session) CreateDebugString() string {
	st := s.State()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// ResortResults orders results by descending score, then by name.
func (s *Session) ResortResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.results, func(i, j int) bool {
		if s.results[i].Score != s.results[j].Score {
			return s.results[i].Score > s.results[j].Score
		}
		return s.results[i].Name < s.results[j].Name
	})
}

// AttachControls keeps the panel's live controls.
func (s *Session) AttachControls(c panel.Controls) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = c
}

// ContextURL reads the current context URL from the panel, if attached.
func (s *Session) ContextURL() string {
	s.mu.Lock()
	in := s.controls.ContextURL
	s.mu.Unlock()
	if in == nil {
		return ""
	}
	return in.Value()
}

// AddMessage appends a chat turn.
func (s *Session) AddMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// AddResults appends results in arrival order.
func (s *Session) AddResults(rs ...Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, rs...)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	url := s.ContextURL()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:           s.id,
		Site:         s.site,
		GenerateMode: s.generateMode,
		DebugMode:    s.debugMode,
		ContextURL:   url,
		CreatedAt:    s.createdAt,
		Messages:     append([]Message{}, s.messages...),
		Results:      append([]Result{}, s.results...),
		Resets:       s.resets,
	}
	return st
}

var (
	_ panel.Host            = (*Session)(nil)
	_ panel.ControlReceiver = (*Session)(nil)
)
