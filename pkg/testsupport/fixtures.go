// Package testsupport holds helpers shared by package tests: doctype
// fixtures and template output capture.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-doctype/pkg/model"
)

// Invoice is a doctype touching every column affinity.
func Invoice() model.Doctype {
	return model.Doctype{
		Name:        "Invoice",
		Permissions: []string{"admin", "accounts"},
		Fields: []model.Field{
			{Name: "number", Type: model.FieldTypeString, Label: "Number", Required: true, Permissions: []string{"read", "write"}},
			{Name: "amount", Type: model.FieldTypeFloat, Label: "Amount", Required: true},
			{Name: "lines", Type: model.FieldTypeInteger, Label: "Lines"},
			{Name: "paid", Type: model.FieldTypeBoolean, Label: "Paid"},
			{Name: "due", Type: model.FieldTypeDate, Label: "Due"},
			{Name: "notes", Type: model.FieldTypeText, Label: "Notes"},
		},
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer and returns both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
