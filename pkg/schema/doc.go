// Package schema loads doctype definitions and seed documents from YAML or
// JSON files. The core set (Role and User) ships embedded.
package schema
