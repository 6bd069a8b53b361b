package dom

import (
	"net/url"
	"strings"
)

// FormValues collects successful controls below root the way a browser
// builds an application/x-www-form-urlencoded submission: named inputs in
// document order, checkboxes only when checked (value defaults to "on"),
// buttons and disabled controls skipped.
func FormValues(root *Element) url.Values {
	values := url.Values{}
	if root == nil {
		return values
	}

	controls := root.FindAll(func(el *Element) bool {
		switch el.TagName() {
		case "input", "textarea", "select":
			return true
		}
		return false
	})

	for _, el := range controls {
		name, ok := el.Attr("name")
		if !ok || name == "" {
			continue
		}
		if _, disabled := el.Attr("disabled"); disabled {
			continue
		}

		switch el.TagName() {
		case "textarea":
			values.Add(name, el.Text())
		case "select":
			if option := el.Find(func(o *Element) bool {
				_, selected := o.Attr("selected")
				return o.TagName() == "option" && selected
			}); option != nil {
				value, ok := option.Attr("value")
				if !ok {
					value = option.Text()
				}
				values.Add(name, value)
			}
		default:
			kind, _ := el.Attr("type")
			switch strings.ToLower(kind) {
			case "button", "submit", "reset", "image", "file":
				continue
			case "checkbox", "radio":
				if _, checked := el.Attr("checked"); !checked {
					continue
				}
				value, ok := el.Attr("value")
				if !ok {
					value = "on"
				}
				values.Add(name, value)
			default:
				value, _ := el.Attr("value")
				values.Add(name, value)
			}
		}
	}
	return values
}
