package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element wraps an html.ElementNode belonging to a Document.
type Element struct {
	doc       *Document
	node      *html.Node
	listeners map[string][]Listener
}

// Node exposes the wrapped node.
func (e *Element) Node() *html.Node {
	return e.node
}

// TagName returns the lower-case tag name.
func (e *Element) TagName() string {
	return e.node.Data
}

// ID returns the id attribute.
func (e *Element) ID() string {
	value, _ := attr(e.node, "id")
	return value
}

// ClassName returns the raw class attribute. No token splitting happens here;
// "remove-field extra" is returned verbatim.
func (e *Element) ClassName() string {
	value, _ := attr(e.node, "class")
	return value
}

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) {
	return attr(e.node, key)
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(key, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(key string) {
	out := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	e.node.Attr = out
}

// Text returns the concatenated text content of the element.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return strings.TrimSpace(b.String())
}

// Parent returns the parent element, or nil when detached or when the parent
// is not an element.
func (e *Element) Parent() *Element {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// Children returns the direct element children in document order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Find returns the first descendant element matching fn.
func (e *Element) Find(fn func(*Element) bool) *Element {
	matches := e.FindAll(fn)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// FindAll returns every descendant element matching fn in document order.
func (e *Element) FindAll(fn func(*Element) bool) []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				el := e.doc.wrap(c)
				if fn(el) {
					out = append(out, el)
				}
			}
			walk(c)
		}
	}
	walk(e.node)
	return out
}

// AppendChild inserts child as the last child of e. A child that is already
// attached elsewhere is moved.
func (e *Element) AppendChild(child *Element) {
	if child == nil || child == e {
		return
	}
	if child.node.Parent != nil {
		child.node.Parent.RemoveChild(child.node)
	}
	e.node.AppendChild(child.node)
}

// Remove detaches e from its parent. Removing a detached element is a no-op.
func (e *Element) Remove() {
	if e.node.Parent == nil {
		return
	}
	e.node.Parent.RemoveChild(e.node)
}

// Connected reports whether e is reachable from the document root.
func (e *Element) Connected() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// AddEventListener registers a listener on e.
func (e *Element) AddEventListener(eventType string, listener Listener) {
	if listener == nil {
		return
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// ListenerCount reports how many listeners e has for eventType.
func (e *Element) ListenerCount(eventType string) int {
	return len(e.listeners[eventType])
}

// ByTag matches elements by tag name.
func ByTag(tag string) func(*Element) bool {
	return func(el *Element) bool { return el.TagName() == tag }
}

// ByName matches elements by their name attribute.
func ByName(name string) func(*Element) bool {
	return func(el *Element) bool {
		value, ok := el.Attr("name")
		return ok && value == name
	}
}

// ByClass matches elements whose class attribute equals class exactly.
func ByClass(class string) func(*Element) bool {
	return func(el *Element) bool { return el.ClassName() == class }
}
