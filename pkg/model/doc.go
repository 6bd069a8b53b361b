// Package model defines the doctype, field and document types shared by the
// editor, the storage layer and the exporters. A Doctype declares a named
// document shape: ordered fields (each with a FieldType, label, required flag
// and field-level permissions) plus doctype-level permissions. Names are SQL
// identifiers because every doctype is backed by its own table and every
// field by a column.
package model
