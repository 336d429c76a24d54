package panel

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/nlweb/chatpanel/internal/sites"
)

// LoadingLabel is shown in the site dropdown while the list is fetched.
const LoadingLabel = "Loading sites..."

// Element ids of the site control variants.
const (
	SiteSelectID = "site_select"
	SiteInputID  = "site_input"
)

// SiteSelector is the site control. Both variants notify the host the same
// way; they differ in how a value is entered.
type SiteSelector interface {
	Value() string
	SetValue(v string)
	// OnChange registers the handler run when the user commits a new site.
	OnChange(fn func(site string))
	Node() *html.Node
}

// SiteDropdown picks a site from the fetched list.
type SiteDropdown struct {
	*Select
	onChange func(string)
}

func newSiteDropdown() *SiteDropdown {
	d := &SiteDropdown{Select: newSelect(SiteSelectID)}
	loading := Element("option", "value", "", "disabled", "", "selected", "")
	loading.AppendChild(Text(LoadingLabel))
	d.node.AppendChild(loading)
	SetAttr(d.node, "disabled", "")
	return d
}

// SetValue selects v if it is one of the options.
func (d *SiteDropdown) SetValue(v string) { d.Select.SetValue(v) }

// OnChange implements SiteSelector.
func (d *SiteDropdown) OnChange(fn func(string)) { d.onChange = fn }

// Loading reports whether the list has not been populated yet.
func (d *SiteDropdown) Loading() bool { return d.Disabled() }

// populate replaces the placeholder with list and picks the initial site:
// the host's current site when listed, otherwise the first entry, which is
// then written back to the host.
func (d *SiteDropdown) populate(list []string, host Host) {
	d.SetOptions(list)
	d.SetDisabled(false)

	current := host.Site()
	if slices.Contains(list, current) {
		d.Select.SetValue(current)
		return
	}
	if len(list) > 0 {
		d.Select.SetValue(list[0])
		host.SetSite(list[0])
	}
}

func (d *SiteDropdown) handle(ev Event) (bool, error) {
	if d.Loading() {
		return false, nil
	}
	if ev.Type != EventChange {
		return false, nil
	}
	if !d.Select.SetValue(ev.Value) {
		return false, ErrInvalidValue
	}
	if d.onChange != nil {
		d.onChange(d.Value())
	}
	return true, nil
}

// SiteTextInput takes a free-text site name. An empty entry means "all".
type SiteTextInput struct {
	*TextInput
	onChange func(string)
}

func newSiteTextInput() *SiteTextInput {
	return &SiteTextInput{TextInput: newTextInput(SiteInputID, "Enter site name")}
}

// OnChange implements SiteSelector.
func (t *SiteTextInput) OnChange(fn func(string)) { t.onChange = fn }

// handle tracks the typed text; only change and blur commit it.
func (t *SiteTextInput) handle(ev Event) (bool, error) {
	t.SetValue(ev.Value)
	if ev.Type != EventChange && ev.Type != EventBlur {
		return false, nil
	}
	site := strings.TrimSpace(ev.Value)
	if site == "" {
		site = sites.All
	}
	if t.onChange != nil {
		t.onChange(site)
	}
	return true, nil
}

var (
	_ SiteSelector = (*SiteDropdown)(nil)
	_ SiteSelector = (*SiteTextInput)(nil)
)
