package render

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/sanitize"
)

// Input names posted by the doctype editor. The repeated names line up with
// the inputs the repeater generates.
const (
	InputDoctypeName      = "name"
	InputPermissions      = "permissions"
	InputFieldName        = "field_name"
	InputFieldType        = "field_type"
	InputFieldLabel       = "field_label"
	InputFieldRequired    = "field_required"
	InputFieldPermissions = "field_permissions"
	requiredByPosition    = "on"
)

// DecodeOption tunes DecodeDoctypeForm.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	requiredByName bool
}

// RequiredByName disables positional matching of "on" in field_required. The
// edit page pre-renders checkboxes with value=<name> and unchecked boxes are
// not posted, so positions there do not line up with rows.
func RequiredByName() DecodeOption {
	return func(c *decodeConfig) {
		c.requiredByName = true
	}
}

// DecodeDoctypeForm converts an editor submission into a Doctype.
//
// field_name, field_type and field_label are parallel arrays; the row count is
// the shortest of the three. field_required accepts two encodings: a field
// name (checkboxes rendered with value=<name>) or the browser default "on".
// Only checked boxes are posted, so "on" is matched by position only when
// every posted value is "on" and RequiredByName is not set; once any name is
// present matching is by name alone. Rows with a blank name are
// dropped so an untouched block added by the repeater does not create a
// column.
func DecodeDoctypeForm(values url.Values, opts ...DecodeOption) model.Doctype {
	cfg := decodeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	doctype := model.Doctype{
		Name:        sanitize.Text(values.Get(InputDoctypeName)),
		Permissions: sanitize.Tokens(values[InputPermissions]),
		Fields:      []model.Field{},
	}

	names := values[InputFieldName]
	types := values[InputFieldType]
	labels := values[InputFieldLabel]
	perms := values[InputFieldPermissions]
	required := values[InputFieldRequired]

	rows := min(len(names), len(types), len(labels))

	requiredNames := make(map[string]struct{}, len(required))
	for _, value := range required {
		if value != requiredByPosition {
			requiredNames[strings.TrimSpace(value)] = struct{}{}
		}
	}
	positional := !cfg.requiredByName && len(requiredNames) == 0

	for i := 0; i < rows; i++ {
		name := sanitize.Text(names[i])
		if name == "" {
			continue
		}

		fieldType := model.FieldType(strings.ToLower(strings.TrimSpace(types[i])))
		if fieldType == "" {
			fieldType = model.FieldTypeString
		}

		label := sanitize.Text(labels[i])
		if label == "" {
			label = name
		}

		_, byName := requiredNames[name]
		byPosition := positional && i < len(required) && required[i] == requiredByPosition

		field := model.Field{
			Name:     name,
			Type:     fieldType,
			Label:    label,
			Required: byName || byPosition,
		}
		if i < len(perms) {
			field.Permissions = sanitize.Fields(perms[i])
		}
		doctype.Fields = append(doctype.Fields, field)
	}

	return doctype
}

// DecodeDocumentForm collects one value per declared field. Unchecked boolean
// checkboxes are absent from the submission and decode as "".
func DecodeDocumentForm(doctype model.Doctype, values url.Values) map[string]any {
	data := make(map[string]any, len(doctype.Fields))
	for _, field := range doctype.Fields {
		value := values.Get(field.Name)
		if field.Type != model.FieldTypeBoolean {
			value = sanitize.Text(value)
		}
		data[field.Name] = value
	}
	return data
}
