package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// ValidationError carries messages keyed by the JSON path of the offending
// value (for example "fields[1].name").
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "model: invalid"
	}
	paths := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, path+": "+strings.Join(e.Fields[path], ", "))
	}
	return "model: invalid " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(path, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[path] = append(e.Fields[path], message)
}

// Validator returns the shared validator with the ident and fieldtype tags
// registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
			return IsIdentifier(fl.Field().String())
		})
		_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
			return !IsReservedColumn(fl.Field().String())
		})
		_ = v.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
			return FieldType(fl.Field().String()).Known()
		})
		validate = v
	})
	return validate
}

// IsIdentifier reports whether name can be used as a table or column name.
func IsIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// ReservedColumn is the primary key every doctype table carries.
const ReservedColumn = "id"

// IsReservedColumn reports whether name collides with the primary key.
// SQLite compares column names case-insensitively.
func IsReservedColumn(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), ReservedColumn)
}

// Validate checks struct tags plus cross-field rules (unique field names).
func (d Doctype) Validate() error {
	verr := &ValidationError{}

	if err := Validator().Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("model: validate doctype: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(trimNamespace(fe.Namespace()), describe(fe))
		}
	}

	seen := make(map[string]int, len(d.Fields))
	for i, field := range d.Fields {
		key := strings.ToLower(field.Name)
		if first, dup := seen[key]; dup {
			verr.add(fmt.Sprintf("fields[%d].name", i), fmt.Sprintf("duplicates fields[%d]", first))
			continue
		}
		seen[key] = i
	}

	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func trimNamespace(ns string) string {
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "ident":
		return "must start with a letter or underscore and contain only letters, digits and underscores"
	case "fieldtype":
		return fmt.Sprintf("unknown field type %q", fe.Value())
	case "notreserved":
		return fmt.Sprintf("must not be %q", ReservedColumn)
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
