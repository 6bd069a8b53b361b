package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-doctype/pkg/model"
)

// ErrorMapping splits validation feedback into field-level messages keyed by
// path and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapError turns err into an ErrorMapping. Model validation errors keep their
// paths; anything else becomes a single form-level message.
func MapError(err error) ErrorMapping {
	mapping := ErrorMapping{}
	if err == nil {
		return mapping
	}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		for path, messages := range verr.Fields {
			if normalized := normalizeMessages(messages); len(normalized) > 0 {
				if mapping.Fields == nil {
					mapping.Fields = make(map[string][]string)
				}
				mapping.Fields[path] = normalized
			}
		}
		return mapping
	}

	mapping.Form = MergeFormErrors(nil, err.Error())
	return mapping
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
