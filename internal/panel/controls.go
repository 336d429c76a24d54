package panel

import (
	"sync"

	"golang.org/x/net/html"
)

// Select is a <select> element. Its methods are safe to call from the host
// while the panel is dispatching events.
type Select struct {
	mu   sync.RWMutex
	node *html.Node
}

func newSelect(id string) *Select {
	return &Select{node: Element("select", "id", id)}
}

// Node returns the underlying element.
func (s *Select) Node() *html.Node { return s.node }

// Options returns the option values in order.
func (s *Select) Options() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for o := s.node.FirstChild; o != nil; o = o.NextSibling {
		v, _ := Attr(o, "value")
		out = append(out, v)
	}
	return out
}

// SetOptions replaces the options. Each option shows its value as its label.
func (s *Select) SetOptions(values []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ClearChildren(s.node)
	for _, v := range values {
		o := Element("option", "value", v)
		o.AppendChild(Text(v))
		s.node.AppendChild(o)
	}
}

// Value returns the selected option's value. With nothing explicitly
// selected the first enabled option wins, as in a browser.
func (s *Select) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *html.Node
	for o := s.node.FirstChild; o != nil; o = o.NextSibling {
		if _, ok := Attr(o, "selected"); ok {
			v, _ := Attr(o, "value")
			return v
		}
		if _, disabled := Attr(o, "disabled"); first == nil && !disabled {
			first = o
		}
	}
	if first == nil {
		return ""
	}
	v, _ := Attr(first, "value")
	return v
}

// SetValue selects the option with value v. It reports false, leaving the
// selection unchanged, when no such option exists.
func (s *Select) SetValue(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match *html.Node
	for o := s.node.FirstChild; o != nil; o = o.NextSibling {
		if val, _ := Attr(o, "value"); val == v {
			match = o
			break
		}
	}
	if match == nil {
		return false
	}
	for o := s.node.FirstChild; o != nil; o = o.NextSibling {
		RemoveAttr(o, "selected")
	}
	SetAttr(match, "selected", "")
	return true
}

// Disabled reports whether the select is disabled.
func (s *Select) Disabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := Attr(s.node, "disabled")
	return ok
}

// SetDisabled toggles the disabled attribute.
func (s *Select) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if disabled {
		SetAttr(s.node, "disabled", "")
		return
	}
	RemoveAttr(s.node, "disabled")
}

// TextInput is an <input type="text"> element.
type TextInput struct {
	mu   sync.RWMutex
	node *html.Node
}

func newTextInput(id, placeholder string) *TextInput {
	return &TextInput{node: Element("input", "type", "text", "id", id, "placeholder", placeholder)}
}

// Node returns the underlying element.
func (t *TextInput) Node() *html.Node { return t.node }

// Value returns the current text.
func (t *TextInput) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, _ := Attr(t.node, "value")
	return v
}

// SetValue replaces the current text.
func (t *TextInput) SetValue(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	SetAttr(t.node, "value", v)
}

// Icon is a clickable <img>.
type Icon struct {
	node *html.Node
}

func newIcon(id, src, title string) *Icon {
	return &Icon{node: Element("img", "id", id, "class", "selector-icon", "src", src, "title", title, "alt", title)}
}

// Node returns the underlying element.
func (i *Icon) Node() *html.Node { return i.node }
