package pongo

import (
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-doctype/pkg/model"
)

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("inputtype") {
		_ = pongo2.RegisterFilter("inputtype", filterInputType)
	}
	if !pongo2.FilterExists("get") {
		_ = pongo2.RegisterFilter("get", filterGet)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterInputType maps a field type onto the HTML input type used by the
// document form.
func filterInputType(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	switch model.FieldType(strings.TrimSpace(in.String())) {
	case model.FieldTypeInteger, model.FieldTypeFloat:
		return pongo2.AsValue("number"), nil
	case model.FieldTypeBoolean:
		return pongo2.AsValue("checkbox"), nil
	case model.FieldTypeDate:
		return pongo2.AsValue("date"), nil
	case model.FieldTypeDatetime:
		return pongo2.AsValue("datetime-local"), nil
	default:
		return pongo2.AsValue("text"), nil
	}
}

// filterGet indexes a map with a dynamic key: {{ doc.data|get:field.name }}.
// Numbers come back formatted without trailing zeros.
func filterGet(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	m, ok := in.Interface().(map[string]any)
	if !ok || param == nil {
		return pongo2.AsValue(nil), nil
	}
	switch v := m[param.String()].(type) {
	case float64:
		return pongo2.AsValue(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case int64:
		return pongo2.AsValue(strconv.FormatInt(v, 10)), nil
	default:
		return pongo2.AsValue(v), nil
	}
}
