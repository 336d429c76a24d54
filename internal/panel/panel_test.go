package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nlweb/chatpanel/internal/sites"
)

// fakeHost records every call the panel makes.
type fakeHost struct {
	mu       sync.Mutex
	site     string
	mode     string
	debug    bool
	resets   int
	resorts  int
	debugStr string
	controls *Controls
}

func (h *fakeHost) Site() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.site
}

func (h *fakeHost) SetSite(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.site = s
}

func (h *fakeHost) GenerateMode() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

func (h *fakeHost) SetGenerateMode(m string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = m
}

func (h *fakeHost) DebugMode() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.debug
}

func (h *fakeHost) SetDebugMode(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = on
}

func (h *fakeHost) ResetChatState() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++
}

func (h *fakeHost) ResortResults() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resorts++
}

func (h *fakeHost) CreateDebugString() string { return h.debugStr }
func (h *fakeHost) AttachControls(c Controls) { h.controls = &c }

// blockingLister holds the fetch until release is closed.
type blockingLister struct {
	list    []string
	release chan struct{}
}

func (b blockingLister) ListSites(ctx context.Context) []string {
	<-b.release
	return b.list
}

func newContainer() *html.Node {
	return Element("div", "id", "chat-container")
}

func waitReady(t *testing.T, p *Panel) {
	t.Helper()
	select {
	case <-p.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("panel never became ready")
	}
}

func render(t *testing.T, p *Panel) *goquery.Document {
	t.Helper()
	var b strings.Builder
	if err := p.Render(&b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("parsing markup: %v", err)
	}
	return doc
}

func TestRowLayout(t *testing.T) {
	host := &fakeHost{mode: "list"}
	container := newContainer()
	existing := Element("p", "id", "existing")
	container.AppendChild(existing)

	p := New(context.Background(), host, container, Options{})
	waitReady(t, p)

	if container.FirstChild != p.Row() {
		t.Fatal("row was not prepended to the container")
	}
	if p.Row().NextSibling != existing {
		t.Error("existing content should follow the row")
	}

	doc := render(t, p)
	row := doc.Find("div.site-selector")
	if row.Length() != 1 {
		t.Fatalf("expected one site-selector row, got %d", row.Length())
	}

	var ids []string
	row.Children().Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok {
			ids = append(ids, id)
		}
	})
	want := []string{SiteSelectID, ModeSelectID, ClearID, DebugID, ContextURLDivID}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("control order: got %v, want %v", ids, want)
	}

	if src, _ := doc.Find("#" + ClearID).Attr("src"); src != ClearIconSrc {
		t.Errorf("clear icon src: got %q", src)
	}
	if src, _ := doc.Find("#" + DebugID).Attr("src"); src != DebugIconSrc {
		t.Errorf("debug icon src: got %q", src)
	}
	if doc.Find("#"+ContextURLDivID+" input#"+ContextURLID).Length() != 1 {
		t.Error("expected context_url input inside context_url_div")
	}
	if doc.Find("label").Length() != 3 {
		t.Errorf("expected 3 labels, got %d", doc.Find("label").Length())
	}
}

func TestDropdownShowsLoadingUntilFetched(t *testing.T) {
	host := &fakeHost{site: "oreilly", mode: "list"}
	lister := blockingLister{list: []string{"all", "oreilly"}, release: make(chan struct{})}

	p := New(context.Background(), host, newContainer(), Options{Lister: lister})

	doc := render(t, p)
	sel := doc.Find("#" + SiteSelectID)
	if _, ok := sel.Attr("disabled"); !ok {
		t.Error("site select should be disabled while loading")
	}
	if got := strings.TrimSpace(sel.Find("option").Text()); got != LoadingLabel {
		t.Errorf("placeholder: got %q", got)
	}

	// Other controls work while the fetch is pending.
	if _, err := p.Dispatch(Event{Target: ClearID, Type: EventClick}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if host.resets != 1 {
		t.Errorf("expected 1 reset, got %d", host.resets)
	}

	// A change on the loading dropdown is ignored.
	if _, err := p.Dispatch(Event{Target: SiteSelectID, Type: EventChange, Value: "oreilly"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if host.resets != 1 {
		t.Error("loading dropdown should not notify the host")
	}

	close(lister.release)
	waitReady(t, p)

	doc = render(t, p)
	sel = doc.Find("#" + SiteSelectID)
	if _, ok := sel.Attr("disabled"); ok {
		t.Error("site select should be enabled after loading")
	}
	if n := sel.Find("option").Length(); n != 2 {
		t.Errorf("expected 2 options, got %d", n)
	}
}

func TestDropdownKeepsListedHostSite(t *testing.T) {
	host := &fakeHost{site: "oreilly", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{
		Lister: sites.Static{"verge", "oreilly", "eventbrite"},
	})
	waitReady(t, p)

	if got := p.Controls().Site.Value(); got != "oreilly" {
		t.Errorf("selected site: got %q, want oreilly", got)
	}
	if host.Site() != "oreilly" {
		t.Errorf("host site changed to %q", host.Site())
	}
	if host.resets != 0 {
		t.Errorf("initial selection should not reset chat state")
	}
}

func TestDropdownDefaultsUnsetHostSiteToFirst(t *testing.T) {
	host := &fakeHost{mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{
		Lister: sites.Static{"all", "x", "y"},
	})
	waitReady(t, p)

	if got := p.Controls().Site.Value(); got != "all" {
		t.Errorf("selected site: got %q, want all", got)
	}
	if host.Site() != "all" {
		t.Errorf("host site: got %q, want all", host.Site())
	}
}

func TestDropdownReplacesUnknownHostSite(t *testing.T) {
	host := &fakeHost{site: "gone", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{Lister: sites.Static{"b", "a"}})
	waitReady(t, p)

	if host.Site() != "all" {
		t.Errorf("host site: got %q, want all", host.Site())
	}
}

func TestDropdownChangeNotifiesHost(t *testing.T) {
	host := &fakeHost{site: "all", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{Lister: sites.Static{"verge", "oreilly"}})
	waitReady(t, p)

	if _, err := p.Dispatch(Event{Target: SiteSelectID, Type: EventChange, Value: "verge"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if host.Site() != "verge" {
		t.Errorf("host site: got %q, want verge", host.Site())
	}
	if host.resets != 1 {
		t.Errorf("expected 1 reset, got %d", host.resets)
	}

	_, err := p.Dispatch(Event{Target: SiteSelectID, Type: EventChange, Value: "nope"})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if host.Site() != "verge" {
		t.Error("invalid change should leave the host untouched")
	}
}

func TestTextInputVariant(t *testing.T) {
	host := &fakeHost{mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{UseTextInputForSite: true})

	select {
	case <-p.Ready():
	default:
		t.Fatal("text input variant should be ready immediately")
	}
	if host.Site() != "all" {
		t.Errorf("unset host site should default to all, got %q", host.Site())
	}

	doc := render(t, p)
	if v, _ := doc.Find("input#" + SiteInputID).Attr("value"); v != "all" {
		t.Errorf("input value: got %q", v)
	}
	if doc.Find("#"+SiteSelectID).Length() != 0 {
		t.Error("text input variant should not render a dropdown")
	}

	tests := []struct {
		typ   EventType
		value string
		want  string
	}{
		{EventChange, "  oreilly ", "oreilly"},
		{EventChange, "   ", "all"},
		{EventBlur, "verge", "verge"},
		{EventBlur, "", "all"},
	}
	for _, tt := range tests {
		if _, err := p.Dispatch(Event{Target: SiteInputID, Type: tt.typ, Value: tt.value}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		if host.Site() != tt.want {
			t.Errorf("%s %q: host site %q, want %q", tt.typ, tt.value, host.Site(), tt.want)
		}
	}
	if host.resets != len(tests) {
		t.Errorf("expected %d resets, got %d", len(tests), host.resets)
	}

	// Typing alone does not commit.
	p.Dispatch(Event{Target: SiteInputID, Type: EventInput, Value: "partial"})
	if host.Site() != "all" {
		t.Error("input event should not change the host site")
	}
}

func TestTextInputKeepsHostSite(t *testing.T) {
	host := &fakeHost{site: "scifi_movies"}
	p := New(context.Background(), host, newContainer(), Options{UseTextInputForSite: true})

	if got := p.Controls().Site.Value(); got != "scifi_movies" {
		t.Errorf("input value: got %q", got)
	}
}

func TestModeSelect(t *testing.T) {
	host := &fakeHost{site: "all", mode: "summarize"}
	p := New(context.Background(), host, newContainer(), Options{})
	waitReady(t, p)

	doc := render(t, p)
	var opts []string
	doc.Find("#" + ModeSelectID + " option").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		opts = append(opts, v)
	})
	if strings.Join(opts, ",") != "list,summarize,generate" {
		t.Errorf("mode options: got %v", opts)
	}
	if got := p.Controls().GenerateMode.Value(); got != "summarize" {
		t.Errorf("selected mode: got %q", got)
	}

	if _, err := p.Dispatch(Event{Target: ModeSelectID, Type: EventChange, Value: "generate"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if host.GenerateMode() != "generate" {
		t.Errorf("host mode: got %q", host.GenerateMode())
	}
	if host.resets != 1 {
		t.Errorf("expected 1 reset, got %d", host.resets)
	}
}

func TestModeSelectUnknownHostMode(t *testing.T) {
	host := &fakeHost{site: "all", mode: "bogus"}
	p := New(context.Background(), host, newContainer(), Options{})

	if got := p.Controls().GenerateMode.Value(); got != "list" {
		t.Errorf("expected first option as default, got %q", got)
	}
	if host.GenerateMode() != "bogus" {
		t.Error("host mode should not be validated or rewritten")
	}
}

func TestDebugToggle(t *testing.T) {
	display := Element("div", "id", "debug_output")
	display.AppendChild(Text("results"))
	host := &fakeHost{site: "all", mode: "list", debugStr: "<debug & info>"}

	p := New(context.Background(), host, newContainer(), Options{DebugDisplay: display})

	if _, err := p.Dispatch(Event{Target: DebugID, Type: EventClick}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !host.DebugMode() {
		t.Fatal("first click should turn debug mode on")
	}
	var b strings.Builder
	p.Do(func() {
		if err := html.Render(&b, display.FirstChild); err != nil {
			t.Errorf("Render: %v", err)
		}
	})
	if got := b.String(); got != "&lt;debug &amp; info&gt;" {
		t.Errorf("debug display: got %q", got)
	}
	if host.resorts != 0 {
		t.Error("turning debug on should not resort")
	}

	if _, err := p.Dispatch(Event{Target: DebugID, Type: EventClick}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if host.DebugMode() {
		t.Error("second click should turn debug mode off")
	}
	if display.FirstChild != nil {
		t.Error("debug display should be cleared")
	}
	if host.resorts != 1 {
		t.Errorf("expected exactly 1 resort, got %d", host.resorts)
	}
}

func TestContextURLExposedToHost(t *testing.T) {
	host := &fakeHost{site: "all", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{UseTextInputForSite: true})

	if host.controls == nil {
		t.Fatal("host did not receive controls")
	}
	if _, err := p.Dispatch(Event{Target: ContextURLID, Type: EventInput, Value: "https://example.com/a"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := host.controls.ContextURL.Value(); got != "https://example.com/a" {
		t.Errorf("context url: got %q", got)
	}
	if host.resets != 0 {
		t.Error("context url input should not notify the host")
	}
	if host.controls.Site != p.Controls().Site {
		t.Error("host should hold the live site control")
	}
}

func TestSiteNamesAreEscaped(t *testing.T) {
	host := &fakeHost{site: "all", mode: "list"}
	evil := `<script>alert("x")</script>&co`
	p := New(context.Background(), host, newContainer(), Options{Lister: sites.Static{evil}})
	waitReady(t, p)

	var b strings.Builder
	if err := p.Render(&b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	markup := b.String()
	if strings.Contains(markup, "<script>") {
		t.Errorf("markup contains unescaped site name: %s", markup)
	}
	if !strings.Contains(markup, "&lt;script&gt;") || !strings.Contains(markup, "&amp;co") {
		t.Errorf("expected escaped site name in markup: %s", markup)
	}

	doc := render(t, p)
	var found bool
	doc.Find("#" + SiteSelectID + " option").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		if v == evil && s.Text() == evil {
			found = true
		}
	})
	if !found {
		t.Error("escaped option should round-trip to the original name")
	}
}

func TestDispatchReportsChanges(t *testing.T) {
	host := &fakeHost{site: "all", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{Lister: sites.Static{"verge"}})
	waitReady(t, p)

	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"typing context url", Event{Target: ContextURLID, Type: EventInput, Value: "h"}, false},
		{"click on site select", Event{Target: SiteSelectID, Type: EventClick}, false},
		{"click on mode select", Event{Target: ModeSelectID, Type: EventClick}, false},
		{"site change", Event{Target: SiteSelectID, Type: EventChange, Value: "verge"}, true},
		{"mode change", Event{Target: ModeSelectID, Type: EventChange, Value: "summarize"}, true},
		{"clear click", Event{Target: ClearID, Type: EventClick}, true},
		{"debug click", Event{Target: DebugID, Type: EventClick}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Dispatch(tt.ev)
			if err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if got != tt.want {
				t.Errorf("changed: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextInputTypingIsNotAChange(t *testing.T) {
	host := &fakeHost{site: "all", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{UseTextInputForSite: true})

	changed, _ := p.Dispatch(Event{Target: SiteInputID, Type: EventInput, Value: "ver"})
	if changed {
		t.Error("typing should not report a change")
	}
	changed, _ = p.Dispatch(Event{Target: SiteInputID, Type: EventBlur, Value: "verge"})
	if !changed {
		t.Error("blur should commit the site")
	}
}

func TestDispatchErrors(t *testing.T) {
	host := &fakeHost{site: "all", mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{UseTextInputForSite: true})

	if _, err := p.Dispatch(Event{Target: "db_select", Type: EventChange}); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("expected ErrUnknownTarget, got %v", err)
	}

	p.Close()
	if _, err := p.Dispatch(Event{Target: ClearID, Type: EventClick}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestCloseBeforeFetchCompletes(t *testing.T) {
	host := &fakeHost{mode: "list"}
	lister := blockingLister{list: []string{"all", "x"}, release: make(chan struct{})}
	p := New(context.Background(), host, newContainer(), Options{Lister: lister})

	p.Close()
	close(lister.release)
	waitReady(t, p)

	if host.Site() != "" {
		t.Errorf("closed panel should not touch the host, site=%q", host.Site())
	}
	if got := p.Controls().Site.Node().FirstChild; got == nil || got.NextSibling != nil {
		t.Error("closed panel should keep only the placeholder option")
	}
}

func TestFetchAfterRowRemoved(t *testing.T) {
	host := &fakeHost{mode: "list"}
	lister := blockingLister{list: []string{"all", "x"}, release: make(chan struct{})}
	container := newContainer()
	p := New(context.Background(), host, container, Options{Lister: lister})

	container.RemoveChild(p.Row())
	close(lister.release)
	waitReady(t, p)

	if host.Site() != "" {
		t.Errorf("detached row should not update the host, site=%q", host.Site())
	}
}

func TestDefaultListerUsesFallback(t *testing.T) {
	host := &fakeHost{mode: "list"}
	p := New(context.Background(), host, newContainer(), Options{})
	waitReady(t, p)

	got := p.Controls().GenerateMode.Options()
	if len(got) != 3 {
		t.Fatalf("mode options: %v", got)
	}
	d := p.Controls().Site.(*SiteDropdown)
	if strings.Join(d.Options(), ",") != strings.Join(sites.Fallback(), ",") {
		t.Errorf("site options: got %v", d.Options())
	}
}
