package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-doctype/pkg/model"
)

// Version is stamped into exported documents.
const Version = "3.0.3"

// APIPrefix is where the server mounts the document API.
const APIPrefix = "/api/documents"

// Export builds the OpenAPI description of the document endpoints for one
// doctype. Field types map onto JSON schema types; required fields are listed
// on the data schema.
func Export(doctype model.Doctype) *openapi3.T {
	data := DataSchema(doctype)
	document := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("doctype_name", openapi3.NewStringSchema()).
		WithProperty("data", data)
	document.Required = []string{"id", "doctype_name", "data"}

	errorBody := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())
	errorBody.Required = []string{"error"}

	create := openapi3.NewObjectSchema().
		WithProperty("doctype", openapi3.NewStringSchema().WithEnum(doctype.Name)).
		WithProperty("data", data)
	create.Required = []string{"doctype", "data"}

	idParam := openapi3.NewPathParameter("id").WithSchema(openapi3.NewInt64Schema())
	name := doctype.Name

	list := operation("list"+name, "List "+name+" documents")
	list.AddResponse(http.StatusOK, jsonResponse("Documents", openapi3.NewArraySchema().WithItems(document)))

	post := operation("create"+name, "Create a "+name+" document")
	post.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithJSONSchema(create).WithRequired(true)}
	post.AddResponse(http.StatusCreated, jsonResponse("Created", document))
	post.AddResponse(http.StatusBadRequest, jsonResponse("Invalid document", errorBody))

	get := operation("get"+name, "Fetch a "+name+" document")
	get.AddParameter(idParam)
	get.AddResponse(http.StatusOK, jsonResponse("Document", document))
	get.AddResponse(http.StatusNotFound, jsonResponse("Not found", errorBody))

	put := operation("update"+name, "Replace the data of a "+name+" document")
	put.AddParameter(idParam)
	put.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithJSONSchema(data).WithRequired(true)}
	put.AddResponse(http.StatusOK, jsonResponse("Updated", document))
	put.AddResponse(http.StatusBadRequest, jsonResponse("Invalid document", errorBody))
	put.AddResponse(http.StatusNotFound, jsonResponse("Not found", errorBody))

	del := operation("delete"+name, "Delete a "+name+" document")
	del.AddParameter(idParam)
	del.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Deleted"))
	del.AddResponse(http.StatusNotFound, jsonResponse("Not found", errorBody))

	for _, op := range []*openapi3.Operation{list, post, get, put, del} {
		op.Tags = []string{name}
		op.AddResponse(http.StatusUnauthorized, jsonResponse("Login required", errorBody))
	}

	paths := openapi3.NewPaths()
	paths.Set(APIPrefix, &openapi3.PathItem{Post: post})
	paths.Set(APIPrefix+"/"+name, &openapi3.PathItem{Get: list})
	paths.Set(APIPrefix+"/"+name+"/{id}", &openapi3.PathItem{Get: get, Put: put, Delete: del})

	return &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:   name + " documents",
			Version: "1.0.0",
		},
		Paths: paths,
	}
}

// DataSchema is the object schema of a document's data for doctype.
func DataSchema(doctype model.Doctype) *openapi3.Schema {
	data := openapi3.NewObjectSchema()
	var required []string
	for _, field := range doctype.Fields {
		prop := fieldSchema(field.Type)
		prop.Title = field.Label
		data.WithProperty(field.Name, prop)
		if field.Required {
			required = append(required, field.Name)
		}
	}
	data.Required = required
	return data
}

func fieldSchema(t model.FieldType) *openapi3.Schema {
	switch t {
	case model.FieldTypeInteger:
		return openapi3.NewInt64Schema()
	case model.FieldTypeFloat:
		return openapi3.NewFloat64Schema()
	case model.FieldTypeBoolean:
		return openapi3.NewBoolSchema()
	case model.FieldTypeDate:
		return openapi3.NewStringSchema().WithFormat("date")
	case model.FieldTypeDatetime:
		return openapi3.NewDateTimeSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

func operation(id, summary string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	return op
}

func jsonResponse(description string, schema *openapi3.Schema) *openapi3.Response {
	return openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)
}

// Renderer exposes Export through the render registry.
type Renderer struct{}

func (Renderer) Name() string        { return "openapi" }
func (Renderer) ContentType() string { return "application/json" }

// Render validates the exported document before encoding it.
func (Renderer) Render(ctx context.Context, doctype model.Doctype) ([]byte, error) {
	doc := Export(doctype)
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate %s: %w", doctype.Name, err)
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: encode %s: %w", doctype.Name, err)
	}
	return append(out, '\n'), nil
}
