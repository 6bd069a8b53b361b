// Package template defines the engine contract page renderers depend on.
// The pongo subpackage provides the default implementation.
package template
