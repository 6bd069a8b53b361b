// Package pages renders the HTML pages of the doctype application. The
// doctype editor pages host the repeater: they carry the #fields and
// #permissions containers and the #add-field and #add-permission triggers.
package pages

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/render/template"
	"github.com/goliatone/go-doctype/pkg/render/template/pongo"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Page names.
const (
	Home         = "home"
	Login        = "login"
	DoctypeList  = "doctype_list"
	DoctypeNew   = "doctype_new"
	DoctypeView  = "doctype_view"
	DoctypeEdit  = "doctype_edit"
	DocumentList = "document_list"
	DocumentForm = "document_form"
)

// DefaultScriptPath is where the server mounts the repeater runtime.
const DefaultScriptPath = "/static/js/doctype-repeater.js"

// ErrUnknownPage is returned for names outside the page list.
var ErrUnknownPage = errors.New("pages: unknown page")

var known = map[string]struct{}{
	Home: {}, Login: {}, DoctypeList: {}, DoctypeNew: {},
	DoctypeView: {}, DoctypeEdit: {}, DocumentList: {}, DocumentForm: {},
}

// View is the data handed to every page. Templates see the json names.
type View struct {
	Title      string            `json:"title"`
	User       string            `json:"user,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
	Action     string            `json:"action,omitempty"`
	IsNew      bool              `json:"is_new"`
	Username   string            `json:"username,omitempty"`
	Doctype    *model.Doctype    `json:"doctype,omitempty"`
	Doctypes   []model.Doctype   `json:"doctypes,omitempty"`
	Document   *model.Document   `json:"document,omitempty"`
	Documents  []model.Document  `json:"documents,omitempty"`
	FieldTypes []model.FieldType `json:"field_types,omitempty"`
}

// FS returns the embedded templates rooted at the template directory.
func FS() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("pages: templates: %v", err))
	}
	return sub
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	engine     template.TemplateRenderer
	dir        string
	site       string
	scriptPath string
}

// WithEngine swaps the template engine.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(cfg *config) {
		cfg.engine = engine
	}
}

// WithTemplateDir loads templates from disk instead of the embedded set.
func WithTemplateDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = dir
	}
}

// WithSiteName sets the title suffix.
func WithSiteName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.site = name
		}
	}
}

// WithScriptPath overrides the runtime script URL.
func WithScriptPath(path string) Option {
	return func(cfg *config) {
		if path != "" {
			cfg.scriptPath = path
		}
	}
}

// Renderer renders pages by name.
type Renderer struct {
	engine template.TemplateRenderer
}

// New builds a Renderer backed by the pongo engine unless WithEngine is given.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{site: "Doctypes", scriptPath: DefaultScriptPath}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	globals := map[string]any{"site": cfg.site, "script_path": cfg.scriptPath}

	engine := cfg.engine
	if engine == nil {
		source := pongo.WithFS(FS())
		if cfg.dir != "" {
			source = pongo.WithBaseDir(cfg.dir)
		}
		built, err := pongo.New(source, pongo.WithGlobalData(globals))
		if err != nil {
			return nil, fmt.Errorf("pages: %w", err)
		}
		engine = built
	} else if err := engine.GlobalContext(globals); err != nil {
		return nil, fmt.Errorf("pages: globals: %w", err)
	}

	return &Renderer{engine: engine}, nil
}

// Render writes page to w.
func (r *Renderer) Render(w io.Writer, page string, view View) error {
	if _, ok := known[page]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}
	if view.FieldTypes == nil && (page == DoctypeNew || page == DoctypeEdit) {
		view.FieldTypes = model.FieldTypes()
	}
	if _, err := r.engine.RenderTemplate(page, view, w); err != nil {
		return fmt.Errorf("pages: render %s: %w", page, err)
	}
	return nil
}

// Pages lists the page names in sorted order.
func (r *Renderer) Pages() []string {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
