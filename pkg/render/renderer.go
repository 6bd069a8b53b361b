package render

import (
	"context"

	"github.com/goliatone/go-doctype/pkg/model"
)

// Renderer converts a Doctype into a byte representation (YAML, JSON,
// OpenAPI, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, doctype model.Doctype) ([]byte, error)
}
