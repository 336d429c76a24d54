package server

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nlweb/chatpanel/internal/chat"
	"github.com/nlweb/chatpanel/internal/panel"
	"github.com/nlweb/chatpanel/internal/sites"
)

//go:embed page.html
var pageHTML []byte

// Element ids of the page skeleton.
const (
	containerID = "chat-container"
	debugID     = "debug_output"
	resultsID   = "results"
)

// page is one open chat debug page: a session and the panel hosted by it.
type page struct {
	session  *chat.Session
	panel    *panel.Panel
	doc      *html.Node
	debug    *html.Node
	results  *html.Node
	lastSeen time.Time
	sockets  int
}

// newPage parses the skeleton and mounts a panel for session.
func newPage(ctx context.Context, session *chat.Session, lister sites.Lister, textInput bool, logger *zap.Logger) (*page, error) {
	doc, err := html.Parse(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing page skeleton: %w", err)
	}

	container := panel.FindByID(doc, containerID)
	debug := panel.FindByID(doc, debugID)
	results := panel.FindByID(doc, resultsID)
	if container == nil || debug == nil || results == nil {
		return nil, fmt.Errorf("page skeleton is missing %s, %s or %s", containerID, debugID, resultsID)
	}
	if body := findTag(doc, "body"); body != nil {
		panel.SetAttr(body, "data-session", session.ID())
	}

	p := &page{
		session:  session,
		doc:      doc,
		debug:    debug,
		results:  results,
		lastSeen: time.Now(),
	}
	p.panel = panel.New(ctx, session, container, panel.Options{
		UseTextInputForSite: textInput,
		Lister:              lister,
		DebugDisplay:        debug,
		Logger:              logger.With(zap.String("session", session.ID())),
	})
	return p, nil
}

// refreshResults rebuilds the results list from the session. It must run
// under the panel lock. In debug mode the list stays empty.
func (p *page) refreshResults() {
	panel.ClearChildren(p.results)
	st := p.session.State()
	if st.DebugMode {
		return
	}
	for _, r := range st.Results {
		li := panel.Element("li", "data-score", strconv.FormatFloat(r.Score, 'f', -1, 64))
		a := panel.Element("a", "href", r.URL)
		a.AppendChild(panel.Text(r.Name))
		li.AppendChild(a)
		p.results.AppendChild(li)
	}
}

// render writes the whole document.
func (p *page) render(w io.Writer) error {
	var err error
	p.panel.Do(func() {
		p.refreshResults()
		err = html.Render(w, p.doc)
	})
	return err
}

// fragments renders the parts of the page that events can change.
func (p *page) fragments() (selector, debug, results string, err error) {
	var sb, db, rb bytes.Buffer
	p.panel.Do(func() {
		p.refreshResults()
		if err = html.Render(&sb, p.panel.Row()); err != nil {
			return
		}
		if err = renderChildren(&db, p.debug); err != nil {
			return
		}
		err = renderChildren(&rb, p.results)
	})
	return sb.String(), db.String(), rb.String(), err
}

func renderChildren(w io.Writer, n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findTag(c, tag); f != nil {
			return f
		}
	}
	return nil
}

// registry tracks open pages by session id.
type registry struct {
	mu    sync.Mutex
	pages map[string]*page
	ttl   time.Duration
}

func newRegistry(ttl time.Duration) *registry {
	return &registry{pages: make(map[string]*page), ttl: ttl}
}

func (r *registry) add(p *page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[p.session.ID()] = p
}

func (r *registry) get(id string) (*page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[id]
	if ok {
		p.lastSeen = time.Now()
	}
	return p, ok
}

func (r *registry) touch(id string) {
	r.get(id)
}

// connect marks a page as having one more open socket.
func (r *registry) connect(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pages[id]; ok {
		p.sockets++
		p.lastSeen = time.Now()
	}
}

// disconnect undoes connect. The idle clock restarts from now.
func (r *registry) disconnect(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pages[id]; ok && p.sockets > 0 {
		p.sockets--
		p.lastSeen = time.Now()
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// sweep closes and forgets pages without an open socket that have been idle
// for longer than the ttl.
func (r *registry) sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, p := range r.pages {
		if p.sockets == 0 && now.Sub(p.lastSeen) > r.ttl {
			p.panel.Close()
			delete(r.pages, id)
			n++
		}
	}
	return n
}
