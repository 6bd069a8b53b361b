package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Event types dispatched by Document.
const (
	EventClick            = "click"
	EventDOMContentLoaded = "DOMContentLoaded"
)

// Event describes a dispatched event. Target is the element the event was
// fired on; CurrentTarget is the element whose listener is running, or nil
// once the event reaches the document.
type Event struct {
	Type          string
	Target        *Element
	CurrentTarget *Element

	stopped bool
}

// StopPropagation prevents listeners further up the tree from running.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles a dispatched event.
type Listener func(*Event)

// Document wraps a parsed node tree and keeps element wrappers stable so
// listeners attached to an element survive repeated lookups.
type Document struct {
	root      *html.Node
	elements  map[*html.Node]*Element
	listeners map[string][]Listener
	ready     bool
}

// Parse reads HTML from r and returns a Document rooted at the parsed tree.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// NewDocument wraps an existing node tree. A nil root yields an empty document
// node.
func NewDocument(root *html.Node) *Document {
	if root == nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Document{
		root:      root,
		elements:  make(map[*html.Node]*Element),
		listeners: make(map[string][]Listener),
	}
}

// Root returns the underlying root node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or nil if the tree has none.
func (d *Document) Body() *Element {
	return d.first(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "body"
	})
}

// GetElementByID returns the first connected element whose id attribute
// equals id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.first(func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		value, ok := attr(n, "id")
		return ok && value == id
	})
}

// Create builds a detached element from b.
func (d *Document) Create(b *Builder) *Element {
	if b == nil {
		return nil
	}
	return d.wrap(b.Build())
}

// AddEventListener registers a document-level listener. Document listeners
// run after every element listener on the propagation path.
func (d *Document) AddEventListener(eventType string, listener Listener) {
	if listener == nil {
		return
	}
	d.listeners[eventType] = append(d.listeners[eventType], listener)
}

// ListenerCount reports how many document-level listeners exist for
// eventType.
func (d *Document) ListenerCount(eventType string) int {
	return len(d.listeners[eventType])
}

// Ready fires DOMContentLoaded once. Later calls are no-ops.
func (d *Document) Ready() {
	if d.ready {
		return
	}
	d.ready = true
	d.Dispatch(&Event{Type: EventDOMContentLoaded})
}

// Click dispatches a click event targeted at el.
func (d *Document) Click(el *Element) {
	if el == nil {
		return
	}
	d.Dispatch(&Event{Type: EventClick, Target: el})
}

// Dispatch runs listeners for ev. The propagation path is fixed before the
// first listener runs, so listeners that detach nodes do not change which
// ancestors see the event.
func (d *Document) Dispatch(ev *Event) {
	if ev == nil {
		return
	}

	var path []*Element
	if ev.Target != nil {
		for n := ev.Target.node; n != nil; n = n.Parent {
			if n.Type == html.ElementNode {
				path = append(path, d.wrap(n))
			}
		}
	}

	for _, el := range path {
		listeners := append([]Listener(nil), el.listeners[ev.Type]...)
		for _, listener := range listeners {
			ev.CurrentTarget = el
			listener(ev)
		}
		if ev.stopped {
			return
		}
	}

	ev.CurrentTarget = nil
	for _, listener := range append([]Listener(nil), d.listeners[ev.Type]...) {
		listener(ev)
	}
}

// Render serialises the document.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("dom: render: %w", err)
	}
	return nil
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n, listeners: make(map[string][]Listener)}
	d.elements[n] = el
	return el
}

func (d *Document) first(match func(*html.Node) bool) *Element {
	if n := findNode(d.root, match); n != nil {
		return d.wrap(n)
	}
	return nil
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
