package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Builder assembles element fragments structurally. Text is stored as text
// nodes and escaped on render, so callers never concatenate markup.
type Builder struct {
	tag      string
	attrs    []html.Attribute
	children []func() *html.Node
}

// El starts a builder for tag.
func El(tag string) *Builder {
	return &Builder{tag: tag}
}

// Attr appends an attribute. Repeated keys keep the last value.
func (b *Builder) Attr(key, value string) *Builder {
	for i := range b.attrs {
		if b.attrs[i].Key == key {
			b.attrs[i].Val = value
			return b
		}
	}
	b.attrs = append(b.attrs, html.Attribute{Key: key, Val: value})
	return b
}

// Class sets the class attribute verbatim.
func (b *Builder) Class(class string) *Builder {
	return b.Attr("class", class)
}

// Text appends a text node.
func (b *Builder) Text(text string) *Builder {
	b.children = append(b.children, func() *html.Node {
		return &html.Node{Type: html.TextNode, Data: text}
	})
	return b
}

// Child appends child fragments in order. Nil builders are ignored.
func (b *Builder) Child(children ...*Builder) *Builder {
	for _, child := range children {
		if child == nil {
			continue
		}
		b.children = append(b.children, child.Build)
	}
	return b
}

// Build produces a fresh, detached node tree. Calling Build twice yields two
// independent trees.
func (b *Builder) Build() *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     b.tag,
		DataAtom: atom.Lookup([]byte(b.tag)),
		Attr:     append([]html.Attribute(nil), b.attrs...),
	}
	for _, build := range b.children {
		n.AppendChild(build())
	}
	return n
}
