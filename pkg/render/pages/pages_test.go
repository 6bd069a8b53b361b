package pages_test

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-doctype/pkg/dom"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/render"
	"github.com/goliatone/go-doctype/pkg/render/pages"
	"github.com/goliatone/go-doctype/pkg/repeater"
	"github.com/goliatone/go-doctype/pkg/testsupport"
)

func renderPage(t *testing.T, page string, view pages.View) string {
	t.Helper()
	renderer, err := pages.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, page, view); err != nil {
		t.Fatalf("render %s: %v", page, err)
	}
	return buf.String()
}

func loadEditor(t *testing.T, markup string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	repeater.Install(doc)
	doc.Ready()
	return doc
}

func submit(t *testing.T, doc *dom.Document) url.Values {
	t.Helper()
	form := doc.GetElementByID("doctype-form")
	if form == nil {
		t.Fatalf("doctype form not rendered")
	}
	return dom.FormValues(form)
}

func setValue(block *dom.Element, name, value string) {
	block.Find(dom.ByName(name)).SetAttr("value", value)
}

func TestNewPageHostsRepeater(t *testing.T) {
	markup := renderPage(t, pages.DoctypeNew, pages.View{
		Title:   "New Doctype",
		User:    "admin",
		Action:  "/doctype/new",
		IsNew:   true,
		Doctype: &model.Doctype{},
	})
	if !strings.Contains(markup, `src="`+pages.DefaultScriptPath+`"`) {
		t.Fatalf("runtime script not referenced:\n%s", markup)
	}

	doc := loadEditor(t, markup)
	for _, id := range []string{repeater.FieldsID, repeater.AddFieldID, repeater.PermissionsID, repeater.AddPermissionID} {
		if doc.GetElementByID(id) == nil {
			t.Fatalf("editor is missing #%s", id)
		}
	}

	add := doc.GetElementByID(repeater.AddFieldID)
	doc.Click(add)
	doc.Click(add)
	doc.Click(add)
	doc.Click(doc.GetElementByID(repeater.AddPermissionID))

	blocks := doc.GetElementByID(repeater.FieldsID).Children()
	doc.GetElementByID("doctype-form").Find(dom.ByName("name")).SetAttr("value", "Task")
	setValue(blocks[0], repeater.FieldNameInput, "title")
	setValue(blocks[0], repeater.FieldTypeInput, "string")
	setValue(blocks[0], repeater.FieldLabelInput, "Title")
	blocks[0].Find(dom.ByName(repeater.FieldRequiredBox)).SetAttr("checked", "")
	setValue(blocks[1], repeater.FieldNameInput, "scratch")
	setValue(blocks[2], repeater.FieldNameInput, "due")
	setValue(blocks[2], repeater.FieldTypeInput, "date")
	setValue(blocks[2], repeater.FieldPermsInput, "read write")
	setValue(doc.GetElementByID(repeater.PermissionsID).Children()[0], repeater.PermissionInput, "admin")

	// Drop the middle block before submitting.
	doc.Click(blocks[1].Find(dom.ByClass(repeater.RemoveFieldClass)))

	got := render.DecodeDoctypeForm(submit(t, doc))
	want := model.Doctype{
		Name:        "Task",
		Permissions: []string{"admin"},
		Fields: []model.Field{
			{Name: "title", Type: model.FieldTypeString, Label: "Title", Required: true},
			{Name: "due", Type: model.FieldTypeDate, Label: "due", Permissions: []string{"read", "write"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted doctype mismatch (-want +got):\n%s", diff)
	}
}

func TestEditPagePrerendersRepeaterBlocks(t *testing.T) {
	invoice := testsupport.Invoice()
	markup := renderPage(t, pages.DoctypeEdit, pages.View{
		Title:   "Edit Invoice",
		User:    "admin",
		Action:  "/doctype/Invoice/edit",
		Doctype: &invoice,
	})
	doc := loadEditor(t, markup)
	fields := doc.GetElementByID(repeater.FieldsID)

	existing := fields.Children()
	if len(existing) != len(invoice.Fields) {
		t.Fatalf("expected %d pre-rendered blocks, got %d", len(invoice.Fields), len(existing))
	}

	doc.Click(doc.GetElementByID(repeater.AddFieldID))
	added := fields.Children()[len(invoice.Fields)]
	if diff := cmp.Diff(shape(added), shape(existing[0])); diff != "" {
		t.Fatalf("pre-rendered block differs from repeater block (-added +prerendered):\n%s", diff)
	}

	// Remove "amount" and submit untouched otherwise.
	doc.Click(existing[1].Find(dom.ByClass(repeater.RemoveFieldClass)))

	got := render.DecodeDoctypeForm(submit(t, doc), render.RequiredByName())
	want := invoice
	want.Fields = append([]model.Field{want.Fields[0]}, want.Fields[2:]...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("edited doctype mismatch (-want +got):\n%s", diff)
	}
}

// shape lists tag, name and class of every element of a block.
func shape(block *dom.Element) []string {
	out := []string{block.TagName() + "." + block.ClassName()}
	for _, el := range block.FindAll(func(*dom.Element) bool { return true }) {
		name, _ := el.Attr("name")
		kind, _ := el.Attr("type")
		out = append(out, el.TagName()+"|"+kind+"|"+name+"|"+el.ClassName())
	}
	return out
}

func TestDocumentPages(t *testing.T) {
	invoice := testsupport.Invoice()
	document := model.Document{
		ID:          7,
		DoctypeName: "Invoice",
		Data: map[string]any{
			"number": "INV-7", "amount": 12.5, "lines": int64(3), "paid": int64(1),
			"due": "2026-01-31", "notes": "<b>net 30</b>",
		},
	}

	list := renderPage(t, pages.DocumentList, pages.View{
		Title: "Invoice", User: "admin", Doctype: &invoice, Documents: []model.Document{document},
	})
	for _, want := range []string{`href="/doctype/Invoice/document/7"`, "<td>INV-7</td>", "<td>12.5</td>", "<td>3</td>", "&lt;b&gt;net 30&lt;/b&gt;"} {
		if !strings.Contains(list, want) {
			t.Fatalf("document list missing %q:\n%s", want, list)
		}
	}

	form := renderPage(t, pages.DocumentForm, pages.View{
		Title: "Invoice 7", User: "admin", Action: "/doctype/Invoice/document/7", Doctype: &invoice, Document: &document,
	})
	doc, err := dom.ParseString(form)
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	got := dom.FormValues(doc.GetElementByID("document-form"))
	want := url.Values{
		"number": {"INV-7"},
		"amount": {"12.5"},
		"lines":  {"3"},
		"paid":   {"1"},
		"due":    {"2026-01-31"},
		"notes":  {"<b>net 30</b>"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("document form values mismatch (-want +got):\n%s", diff)
	}
	if kind, _ := doc.GetElementByID("f-due").Attr("type"); kind != "date" {
		t.Fatalf("due input type = %q", kind)
	}
}

func TestListAndViewPages(t *testing.T) {
	invoice := testsupport.Invoice()
	list := renderPage(t, pages.DoctypeList, pages.View{Title: "Doctypes", User: "admin", Doctypes: []model.Doctype{invoice}})
	if !strings.Contains(list, `<a href="/doctype/Invoice">Invoice</a>`) {
		t.Fatalf("doctype list missing link:\n%s", list)
	}

	view := renderPage(t, pages.DoctypeView, pages.View{Title: "Invoice", User: "admin", Doctype: &invoice})
	if !strings.Contains(view, "/api/doctypes/Invoice/openapi.json") || !strings.Contains(view, "read write") {
		t.Fatalf("doctype view incomplete:\n%s", view)
	}

	login := renderPage(t, pages.Login, pages.View{Title: "Login", Errors: []string{"Invalid username or password"}})
	if !strings.Contains(login, "Invalid username or password") || strings.Contains(login, "Logout") {
		t.Fatalf("login page unexpected:\n%s", login)
	}
}

func TestUnknownPage(t *testing.T) {
	renderer, err := pages.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	err = renderer.Render(&bytes.Buffer{}, "missing", pages.View{})
	if !errors.Is(err, pages.ErrUnknownPage) {
		t.Fatalf("expected ErrUnknownPage, got %v", err)
	}
	if got := len(renderer.Pages()); got != 8 {
		t.Fatalf("expected 8 pages, got %d", got)
	}
}
