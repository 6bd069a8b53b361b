// Package sanitize strips markup from user supplied text before it is
// stored. Output is plain text; escaping is left to the renderer.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds how many layers of entity encoding Text unwraps.
const maxPasses = 8

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Text removes every tag from raw and trims surrounding whitespace.
// Entities are decoded and the result is sanitised again until it is stable,
// so markup smuggled in as "&lt;b&gt;" is stripped too. Input that is still
// changing after maxPasses is dropped.
func Text(raw string) string {
	current := strings.TrimSpace(raw)
	for i := 0; i < maxPasses; i++ {
		if current == "" {
			return ""
		}
		next := strings.TrimSpace(html.UnescapeString(policy().Sanitize(current)))
		if next == current {
			return next
		}
		current = next
	}
	return ""
}

// Tokens sanitises each entry and drops the ones that end up empty.
func Tokens(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		if cleaned := Text(value); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Fields splits a space separated list and sanitises each token.
func Fields(raw string) []string {
	return Tokens(strings.Fields(raw))
}

func policy() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
