// Package panel builds the selector row of the chat debug page: site and
// mode selectors, the clear and debug icons and the context URL field. User
// events on those controls are forwarded to a Host.
package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/nlweb/chatpanel/internal/sites"
)

// Host is the chat interface the panel configures.
type Host interface {
	Site() string
	SetSite(site string)
	GenerateMode() string
	SetGenerateMode(mode string)
	DebugMode() bool
	SetDebugMode(on bool)
	ResetChatState()
	CreateDebugString() string
	ResortResults()
}

// Controls are the live controls handed back to the host.
type Controls struct {
	Site         SiteSelector
	GenerateMode *Select
	ContextURL   *TextInput
}

// ControlReceiver is implemented by hosts that want the panel's controls.
type ControlReceiver interface {
	AttachControls(c Controls)
}

// Modes are the generate modes offered, in display order.
var Modes = []string{"list", "summarize", "generate"}

// Element ids.
const (
	RowClass        = "site-selector"
	ModeSelectID    = "generate_mode"
	ClearID         = "clear_chat"
	DebugID         = "debug_toggle"
	ContextURLDivID = "context_url_div"
	ContextURLID    = "context_url"

	ClearIconSrc = "images/clear.jpeg"
	DebugIconSrc = "images/debug.png"
)

// EventType names a DOM event.
type EventType string

const (
	EventChange EventType = "change"
	EventBlur   EventType = "blur"
	EventClick  EventType = "click"
	EventInput  EventType = "input"
)

// Event is one user interaction with a control, identified by element id.
// Value carries the control's value after the interaction.
type Event struct {
	Target string    `json:"target"`
	Type   EventType `json:"type"`
	Value  string    `json:"value,omitempty"`
}

var (
	ErrUnknownTarget = errors.New("unknown event target")
	ErrInvalidValue  = errors.New("value is not an option of the control")
	ErrClosed        = errors.New("panel closed")
)

// Options configures a Panel.
type Options struct {
	// UseTextInputForSite swaps the site dropdown for a free-text field.
	UseTextInputForSite bool
	// Lister supplies the dropdown's sites. Defaults to the fallback list.
	Lister sites.Lister
	// DebugDisplay is the node replaced by the debug string when debug
	// mode is on. May be nil.
	DebugDisplay *html.Node
	Logger       *zap.Logger
}

// Panel is the selector row bound to one host.
type Panel struct {
	mu        sync.Mutex
	host      Host
	container *html.Node
	opts      Options
	logger    *zap.Logger

	row        *html.Node
	site       SiteSelector
	mode       *Select
	clear      *Icon
	debug      *Icon
	contextURL *TextInput

	handlers map[string]func(Event) (bool, error)
	ready    chan struct{}
	closed   bool
}

// New builds the selector row, prepends it to container and starts
// populating the site dropdown in the background. Every control except the
// dropdown is usable as soon as New returns.
func New(ctx context.Context, host Host, container *html.Node, opts Options) *Panel {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Lister == nil {
		opts.Lister = sites.Static(sites.Fallback())
	}

	p := &Panel{
		host:      host,
		container: container,
		opts:      opts,
		logger:    opts.Logger,
		handlers:  make(map[string]func(Event) (bool, error)),
		ready:     make(chan struct{}),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.row = Element("div", "class", RowClass)

	var dropdown *SiteDropdown
	if opts.UseTextInputForSite {
		p.buildSiteInput()
		close(p.ready)
	} else {
		dropdown = p.buildSiteDropdown()
	}
	p.buildModeSelect()
	p.buildClearIcon()
	p.buildDebugIcon()
	p.buildContextURL()

	Prepend(container, p.row)

	if r, ok := host.(ControlReceiver); ok {
		r.AttachControls(p.Controls())
	}

	if dropdown != nil {
		go p.loadSites(ctx, dropdown)
	}
	return p
}

func (p *Panel) buildSiteDropdown() *SiteDropdown {
	d := newSiteDropdown()
	d.OnChange(func(site string) {
		p.host.SetSite(site)
		p.host.ResetChatState()
	})
	p.site = d
	p.handlers[SiteSelectID] = d.handle

	p.row.AppendChild(withFor(Label("Site: "), SiteSelectID))
	p.row.AppendChild(d.Node())
	return d
}

func (p *Panel) buildSiteInput() {
	t := newSiteTextInput()
	current := p.host.Site()
	if current == "" {
		current = sites.All
		p.host.SetSite(current)
	}
	t.SetValue(current)
	t.OnChange(func(site string) {
		p.host.SetSite(site)
		p.host.ResetChatState()
	})
	p.site = t
	p.handlers[SiteInputID] = t.handle

	p.row.AppendChild(withFor(Label("Site: "), SiteInputID))
	p.row.AppendChild(t.Node())
}

func (p *Panel) buildModeSelect() {
	s := newSelect(ModeSelectID)
	s.SetOptions(Modes)
	s.SetValue(p.host.GenerateMode())
	p.mode = s
	p.handlers[ModeSelectID] = func(ev Event) (bool, error) {
		if ev.Type != EventChange {
			return false, nil
		}
		if !s.SetValue(ev.Value) {
			return false, ErrInvalidValue
		}
		p.host.SetGenerateMode(s.Value())
		p.host.ResetChatState()
		return true, nil
	}

	p.row.AppendChild(withFor(Label("Mode: "), ModeSelectID))
	p.row.AppendChild(s.Node())
}

func (p *Panel) buildClearIcon() {
	p.clear = newIcon(ClearID, ClearIconSrc, "Clear chat history")
	p.handlers[ClearID] = func(ev Event) (bool, error) {
		if ev.Type != EventClick {
			return false, nil
		}
		p.host.ResetChatState()
		return true, nil
	}
	p.row.AppendChild(p.clear.Node())
}

func (p *Panel) buildDebugIcon() {
	p.debug = newIcon(DebugID, DebugIconSrc, "Debug mode")
	p.handlers[DebugID] = func(ev Event) (bool, error) {
		if ev.Type != EventClick {
			return false, nil
		}
		p.toggleDebug()
		return true, nil
	}
	p.row.AppendChild(p.debug.Node())
}

// toggleDebug flips the host between showing results and showing the
// debug string.
func (p *Panel) toggleDebug() {
	display := p.opts.DebugDisplay
	if !p.host.DebugMode() {
		p.host.SetDebugMode(true)
		if display != nil {
			ClearChildren(display)
			display.AppendChild(Text(p.host.CreateDebugString()))
		}
		return
	}

	p.host.SetDebugMode(false)
	if display != nil {
		ClearChildren(display)
	}
	p.host.ResortResults()
}

func (p *Panel) buildContextURL() {
	p.contextURL = newTextInput(ContextURLID, "Context URL")
	// The host reads the value on demand; nothing on the page depends on it.
	p.handlers[ContextURLID] = func(ev Event) (bool, error) {
		p.contextURL.SetValue(ev.Value)
		return false, nil
	}

	div := Element("div", "id", ContextURLDivID)
	div.AppendChild(withFor(Label("Context URL: "), ContextURLID))
	div.AppendChild(p.contextURL.Node())
	p.row.AppendChild(div)
}

func (p *Panel) loadSites(ctx context.Context, d *SiteDropdown) {
	defer close(p.ready)

	list := p.opts.Lister.ListSites(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !attached(p.container, d.Node()) {
		p.logger.Debug("panel gone before site list arrived")
		return
	}
	d.populate(list, p.host)
	p.logger.Debug("site dropdown populated",
		zap.Int("sites", len(list)),
		zap.String("selected", d.Value()))
}

// Dispatch delivers ev to the control it targets. Events are handled one at
// a time. changed reports whether the host or the rendered row was updated;
// typing into a text field and clicks on selects leave both alone.
func (p *Panel) Dispatch(ev Event) (changed bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false, ErrClosed
	}
	h, ok := p.handlers[ev.Target]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownTarget, ev.Target)
	}
	changed, err = h(ev)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", ev.Target, ev.Type, err)
	}
	return changed, nil
}

// Ready is closed once the site control has its final options.
func (p *Panel) Ready() <-chan struct{} { return p.ready }

// Close detaches the panel. A pending site fetch completes without
// touching the tree.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Controls returns the live controls.
func (p *Panel) Controls() Controls {
	return Controls{Site: p.site, GenerateMode: p.mode, ContextURL: p.contextURL}
}

// Row returns the row element.
func (p *Panel) Row() *html.Node { return p.row }

// Render writes the row markup to w.
func (p *Panel) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.row)
}

// Do runs fn with events held off. Use it to read or change nodes of the
// document the panel lives in.
func (p *Panel) Do(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

func withFor(label *html.Node, id string) *html.Node {
	SetAttr(label, "for", id)
	return label
}
