package repeater

import "github.com/goliatone/go-doctype/pkg/dom"

// Element identifiers and classes shared by the editor pages, the browser
// runtime and the controller.
const (
	AddFieldID        = "add-field"
	FieldsID          = "fields"
	AddPermissionID   = "add-permission"
	PermissionsID     = "permissions"
	RemoveFieldClass  = "remove-field"
	RemovePermClass   = "remove-permission"
	FieldClass        = "field"
	PermissionClass   = "permission"
	FieldNameInput    = "field_name"
	FieldTypeInput    = "field_type"
	FieldLabelInput   = "field_label"
	FieldRequiredBox  = "field_required"
	FieldPermsInput   = "field_permissions"
	PermissionInput   = "permissions"
	removeButtonLabel = "Remove"
)

// Block describes one repeatable sub-form: the trigger that adds it, the
// container it is appended to, the exact class of its remove control and a
// constructor for a fresh fragment.
type Block struct {
	Name        string
	TriggerID   string
	ContainerID string
	RemoveClass string
	Build       func() *dom.Builder
}

// FieldBlock adds one field definition row.
var FieldBlock = Block{
	Name:        "field",
	TriggerID:   AddFieldID,
	ContainerID: FieldsID,
	RemoveClass: RemoveFieldClass,
	Build:       NewFieldFragment,
}

// PermissionBlock adds one doctype permission row.
var PermissionBlock = Block{
	Name:        "permission",
	TriggerID:   AddPermissionID,
	ContainerID: PermissionsID,
	RemoveClass: RemovePermClass,
	Build:       NewPermissionFragment,
}

// DefaultBlocks returns the blocks wired by a default controller.
func DefaultBlocks() []Block {
	return []Block{FieldBlock, PermissionBlock}
}

// NewFieldFragment builds an empty field block: name, type, label, a required
// checkbox wrapped in its label, space separated permissions and a remove
// button.
func NewFieldFragment() *dom.Builder {
	return dom.El("div").Class(FieldClass).Child(
		textInput(FieldNameInput, "Field Name"),
		textInput(FieldTypeInput, "Field Type"),
		textInput(FieldLabelInput, "Field Label"),
		dom.El("label").Child(
			dom.El("input").Attr("type", "checkbox").Attr("name", FieldRequiredBox),
		).Text(" Required"),
		textInput(FieldPermsInput, "Permissions (space-separated)"),
		removeButton(RemoveFieldClass),
	)
}

// NewPermissionFragment builds an empty permission block.
func NewPermissionFragment() *dom.Builder {
	return dom.El("div").Class(PermissionClass).Child(
		textInput(PermissionInput, "Permission"),
		removeButton(RemovePermClass),
	)
}

func textInput(name, placeholder string) *dom.Builder {
	return dom.El("input").
		Attr("type", "text").
		Attr("name", name).
		Attr("placeholder", placeholder)
}

func removeButton(class string) *dom.Builder {
	return dom.El("button").Attr("type", "button").Class(class).Text(removeButtonLabel)
}
