// Package repeater adds and removes repeated field and permission blocks in
// the doctype editor. A single delegated document listener handles removal,
// so blocks created after initialisation need no wiring of their own.
package repeater

import "github.com/goliatone/go-doctype/pkg/dom"

// Option configures a Controller.
type Option func(*Controller)

// WithBlocks replaces the default field/permission blocks.
func WithBlocks(blocks ...Block) Option {
	return func(c *Controller) {
		c.blocks = append([]Block(nil), blocks...)
	}
}

// Controller wires add triggers and the delegated remove listener for one
// document.
type Controller struct {
	doc     *dom.Document
	blocks  []Block
	removal map[string]struct{}
}

// New builds a controller for doc. Nothing is wired until Initialize runs.
func New(doc *dom.Document, options ...Option) *Controller {
	c := &Controller{doc: doc, blocks: DefaultBlocks()}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}

	c.removal = make(map[string]struct{}, len(c.blocks))
	for _, block := range c.blocks {
		if block.RemoveClass != "" {
			c.removal[block.RemoveClass] = struct{}{}
		}
	}
	return c
}

// Install creates a controller and defers Initialize to the document's
// DOMContentLoaded event.
func Install(doc *dom.Document, options ...Option) *Controller {
	c := New(doc, options...)
	doc.AddEventListener(dom.EventDOMContentLoaded, func(*dom.Event) {
		c.Initialize()
	})
	return c
}

// Initialize attaches a click listener to every trigger present in the
// document and registers the delegated remove listener. Absent triggers are
// skipped without error.
func (c *Controller) Initialize() {
	if c == nil || c.doc == nil {
		return
	}
	for _, block := range c.blocks {
		trigger := c.doc.GetElementByID(block.TriggerID)
		if trigger == nil {
			continue
		}
		block := block
		trigger.AddEventListener(dom.EventClick, func(*dom.Event) {
			c.add(block)
		})
	}
	c.doc.AddEventListener(dom.EventClick, c.OnDocumentClick)
}

// OnAddField appends a new field block to the fields container.
func (c *Controller) OnAddField() {
	c.add(FieldBlock)
}

// OnAddPermission appends a new permission block to the permissions
// container.
func (c *Controller) OnAddPermission() {
	c.add(PermissionBlock)
}

// OnDocumentClick removes the target's immediate parent when the target's
// class attribute equals one of the registered remove classes. The comparison
// is on the whole attribute string, so "remove-field extra" does not match.
func (c *Controller) OnDocumentClick(ev *dom.Event) {
	if ev == nil || ev.Target == nil {
		return
	}
	if _, ok := c.removal[ev.Target.ClassName()]; !ok {
		return
	}
	if parent := ev.Target.Parent(); parent != nil {
		parent.Remove()
	}
}

func (c *Controller) add(block Block) {
	if c == nil || c.doc == nil || block.Build == nil {
		return
	}
	container := c.doc.GetElementByID(block.ContainerID)
	if container == nil {
		return
	}
	container.AppendChild(c.doc.Create(block.Build()))
}
