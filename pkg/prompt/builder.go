// Package prompt builds a doctype from the terminal. It loads the same editor
// page the browser gets, lets the repeater controller add and remove blocks
// in response to menu choices, fills the inputs and decodes the resulting
// form submission.
package prompt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-doctype/pkg/dom"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/render"
	"github.com/goliatone/go-doctype/pkg/render/pages"
	"github.com/goliatone/go-doctype/pkg/repeater"
)

// ErrAborted signals the user aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("prompt: aborted")

// Menu actions, in the order they are offered.
const (
	ActionAddField = iota
	ActionAddPermission
	ActionRemoveField
	ActionRemovePermission
	ActionDone
)

var menu = []string{
	ActionAddField:         "Add field",
	ActionAddPermission:    "Add permission",
	ActionRemoveField:      "Remove field",
	ActionRemovePermission: "Remove permission",
	ActionDone:             "Done",
}

const editorFormID = "doctype-form"

// Builder drives the editor page with a PromptDriver.
type Builder struct {
	driver PromptDriver
	pages  *pages.Renderer
}

// Option configures a Builder.
type Option func(*Builder)

// WithPages uses renderer for the editor page instead of the embedded set.
func WithPages(renderer *pages.Renderer) Option {
	return func(b *Builder) {
		if renderer != nil {
			b.pages = renderer
		}
	}
}

// New returns a Builder. A nil driver falls back to the survey driver.
func New(driver PromptDriver, opts ...Option) (*Builder, error) {
	if driver == nil {
		driver = NewSurveyDriver(nil)
	}
	b := &Builder{driver: driver}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.pages == nil {
		renderer, err := pages.New()
		if err != nil {
			return nil, fmt.Errorf("prompt: %w", err)
		}
		b.pages = renderer
	}
	return b, nil
}

type session struct {
	ctx    context.Context
	driver PromptDriver
	doc    *dom.Document
}

// Run prompts for a doctype and returns it validated.
func (b *Builder) Run(ctx context.Context) (model.Doctype, error) {
	doc, err := b.load()
	if err != nil {
		return model.Doctype{}, err
	}
	s := &session{ctx: ctx, driver: b.driver, doc: doc}

	name, err := s.driver.Input(ctx, InputConfig{
		Message:   "Doctype name",
		Validator: identifier,
	})
	if err != nil {
		return model.Doctype{}, err
	}
	setValue(doc.GetElementByID(editorFormID).Find(dom.ByName(render.InputDoctypeName)), name)

	for {
		choice, err := s.driver.Select(ctx, SelectConfig{Message: "Next step", Options: menu})
		if err != nil {
			return model.Doctype{}, err
		}
		switch choice {
		case ActionAddField:
			err = s.addField()
		case ActionAddPermission:
			err = s.addPermission()
		case ActionRemoveField:
			err = s.remove(repeater.FieldsID, repeater.RemoveFieldClass, "field")
		case ActionRemovePermission:
			err = s.remove(repeater.PermissionsID, repeater.RemovePermClass, "permission")
		case ActionDone:
			return s.finish()
		default:
			err = fmt.Errorf("prompt: unknown menu choice %d", choice)
		}
		if err != nil {
			return model.Doctype{}, err
		}
	}
}

func (b *Builder) load() (*dom.Document, error) {
	var buf bytes.Buffer
	view := pages.View{
		Title:   "New Doctype",
		Action:  "/doctype/new",
		IsNew:   true,
		Doctype: &model.Doctype{Fields: []model.Field{}},
	}
	if err := b.pages.Render(&buf, pages.DoctypeNew, view); err != nil {
		return nil, fmt.Errorf("prompt: render editor: %w", err)
	}
	doc, err := dom.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("prompt: parse editor: %w", err)
	}
	repeater.Install(doc)
	doc.Ready()
	if doc.GetElementByID(editorFormID) == nil {
		return nil, fmt.Errorf("prompt: editor page has no #%s", editorFormID)
	}
	return doc, nil
}

func (s *session) addField() error {
	block := s.append(repeater.AddFieldID, repeater.FieldsID)
	if block == nil {
		return errors.New("prompt: editor page cannot add fields")
	}

	name, err := s.driver.Input(s.ctx, InputConfig{Message: "Field name", Validator: identifier})
	if err != nil {
		return err
	}
	types := model.FieldTypes()
	options := make([]string, len(types))
	for i, t := range types {
		options[i] = string(t)
	}
	idx, err := s.driver.Select(s.ctx, SelectConfig{Message: "Field type", Options: options})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(types) {
		idx = 0
	}
	label, err := s.driver.Input(s.ctx, InputConfig{Message: "Field label", Default: name})
	if err != nil {
		return err
	}
	required, err := s.driver.Confirm(s.ctx, ConfirmConfig{Message: "Required?"})
	if err != nil {
		return err
	}
	perms, err := s.driver.Input(s.ctx, InputConfig{Message: "Field permissions (space-separated)"})
	if err != nil {
		return err
	}

	setValue(block.Find(dom.ByName(repeater.FieldNameInput)), name)
	setValue(block.Find(dom.ByName(repeater.FieldTypeInput)), options[idx])
	setValue(block.Find(dom.ByName(repeater.FieldLabelInput)), label)
	setValue(block.Find(dom.ByName(repeater.FieldPermsInput)), perms)
	if box := block.Find(dom.ByName(repeater.FieldRequiredBox)); box != nil {
		// Tie the checkbox to its row by name, like the edit page does.
		box.SetAttr("value", strings.TrimSpace(name))
		if required {
			box.SetAttr("checked", "")
		}
	}
	return s.driver.Info(s.ctx, "Added field "+name)
}

func (s *session) addPermission() error {
	block := s.append(repeater.AddPermissionID, repeater.PermissionsID)
	if block == nil {
		return errors.New("prompt: editor page cannot add permissions")
	}
	perm, err := s.driver.Input(s.ctx, InputConfig{Message: "Permission"})
	if err != nil {
		return err
	}
	setValue(block.Find(dom.ByName(repeater.PermissionInput)), perm)
	return s.driver.Info(s.ctx, "Added permission "+perm)
}

// append clicks trigger and returns the block the repeater created.
func (s *session) append(triggerID, containerID string) *dom.Element {
	trigger := s.doc.GetElementByID(triggerID)
	container := s.doc.GetElementByID(containerID)
	if trigger == nil || container == nil {
		return nil
	}
	before := len(container.Children())
	s.doc.Click(trigger)
	children := container.Children()
	if len(children) == before {
		return nil
	}
	return children[len(children)-1]
}

func (s *session) remove(containerID, removeClass, kind string) error {
	container := s.doc.GetElementByID(containerID)
	if container == nil {
		return nil
	}
	blocks := container.Children()
	if len(blocks) == 0 {
		return s.driver.Info(s.ctx, "No "+kind+"s to remove")
	}

	options := make([]string, len(blocks))
	for i, block := range blocks {
		options[i] = fmt.Sprintf("#%d %s", i+1, describe(block))
	}
	idx, err := s.driver.Select(s.ctx, SelectConfig{Message: "Remove which " + kind + "?", Options: options})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(blocks) {
		return nil
	}
	button := blocks[idx].Find(dom.ByClass(removeClass))
	if button == nil {
		return fmt.Errorf("prompt: %s block has no remove control", kind)
	}
	s.doc.Click(button)
	return s.driver.Info(s.ctx, "Removed "+options[idx])
}

func (s *session) finish() (model.Doctype, error) {
	values := dom.FormValues(s.doc.GetElementByID(editorFormID))
	dt := render.DecodeDoctypeForm(values)
	if err := dt.Validate(); err != nil {
		return dt, err
	}
	return dt, nil
}

func describe(block *dom.Element) string {
	var parts []string
	for _, input := range block.FindAll(dom.ByTag("input")) {
		if kind, _ := input.Attr("type"); kind == "checkbox" {
			continue
		}
		if value, _ := input.Attr("value"); value != "" {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " ")
}

func setValue(el *dom.Element, value string) {
	if el != nil {
		el.SetAttr("value", value)
	}
}

func identifier(value string) error {
	if !model.IsIdentifier(strings.TrimSpace(value)) {
		return errors.New("use letters, digits and underscores, starting with a letter or underscore")
	}
	return nil
}
