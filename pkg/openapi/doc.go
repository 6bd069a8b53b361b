// Package openapi describes the document API of a doctype as an OpenAPI 3
// document built with kin-openapi.
package openapi
