package model

import "strings"

// FieldType enumerates the supported field kinds.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeText     FieldType = "text"
	FieldTypeInteger  FieldType = "integer"
	FieldTypeFloat    FieldType = "float"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeDatetime FieldType = "datetime"
	FieldTypeSelect   FieldType = "select"
)

// FieldTypes lists every known type in display order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeString, FieldTypeText, FieldTypeInteger, FieldTypeFloat,
		FieldTypeBoolean, FieldTypeDate, FieldTypeDatetime, FieldTypeSelect,
	}
}

// Known reports whether t is one of FieldTypes.
func (t FieldType) Known() bool {
	for _, known := range FieldTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// SQLType maps the field type onto a SQLite column affinity. Unknown types
// fall back to TEXT.
func (t FieldType) SQLType() string {
	switch t {
	case FieldTypeInteger, FieldTypeBoolean:
		return "INTEGER"
	case FieldTypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Field describes one column of a doctype.
type Field struct {
	ID          int64     `json:"id,omitempty" yaml:"-" db:"id"`
	DoctypeID   int64     `json:"doctype_id,omitempty" yaml:"-" db:"doctype_id"`
	Name        string    `json:"name" yaml:"name" db:"name" validate:"required,ident,notreserved"`
	Type        FieldType `json:"type" yaml:"type" db:"type" validate:"required,fieldtype"`
	Label       string    `json:"label" yaml:"label" db:"label"`
	Required    bool      `json:"required" yaml:"required" db:"required"`
	Permissions []string  `json:"permissions,omitempty" yaml:"permissions,omitempty" db:"-"`
}

// Doctype is a named document shape.
type Doctype struct {
	ID          int64    `json:"id,omitempty" yaml:"-" db:"id"`
	Name        string   `json:"name" yaml:"name" db:"name" validate:"required,ident"`
	Fields      []Field  `json:"fields" yaml:"fields" db:"-" validate:"dive"`
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty" db:"-"`
}

// TableName is the backing table for documents of this doctype.
func (d Doctype) TableName() string {
	return TablePrefix + d.Name
}

// TablePrefix keeps document tables apart from the meta tables.
const TablePrefix = "tab"

// FieldNames returns the field names in declaration order.
func (d Doctype) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, field := range d.Fields {
		names[i] = field.Name
	}
	return names
}

// Field looks up a field by name.
func (d Doctype) Field(name string) (Field, bool) {
	for _, field := range d.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// HasPermission reports whether perm is granted at doctype level.
func (d Doctype) HasPermission(perm string) bool {
	perm = strings.TrimSpace(perm)
	for _, p := range d.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Document is one row of a doctype table. Data is keyed by field name.
type Document struct {
	ID          int64          `json:"id"`
	DoctypeName string         `json:"doctype_name"`
	Data        map[string]any `json:"data"`
}

// Built-in doctypes seeded on first start.
const (
	RoleDoctype = "Role"
	UserDoctype = "User"
)
