package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-doctype/pkg/model"
)

// YAML renders a doctype in the same shape the seed loader reads.
type YAML struct{}

func (YAML) Name() string        { return "yaml" }
func (YAML) ContentType() string { return "application/yaml" }

func (YAML) Render(_ context.Context, doctype model.Doctype) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"doctypes": []model.Doctype{doctype}}); err != nil {
		return nil, fmt.Errorf("render: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// JSON renders the doctype as indented JSON.
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Render(_ context.Context, doctype model.Doctype) ([]byte, error) {
	out, err := json.MarshalIndent(doctype, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: encode json: %w", err)
	}
	return append(out, '\n'), nil
}

// NewDefaultRegistry returns a registry holding the yaml and json renderers.
// Callers add format-specific renderers (openapi) on top.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.MustRegister(YAML{})
	registry.MustRegister(JSON{})
	return registry
}
