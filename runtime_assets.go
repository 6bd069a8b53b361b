package doctype

import (
	"embed"
	"io/fs"
)

//go:embed pkg/runtime/assets/*.js
var embeddedRuntimeAssets embed.FS

// RuntimeAssetsFS exposes the browser runtime that drives the doctype editor
// repeaters, so it can be served without a frontend build step.
//
// Typical mount:
//
//	e.StaticFS("/static/js", doctype.RuntimeAssetsFS())
func RuntimeAssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedRuntimeAssets, "pkg/runtime/assets")
	if err != nil {
		return embeddedRuntimeAssets
	}
	return sub
}

// RepeaterScript is the file name of the repeater runtime inside
// RuntimeAssetsFS.
const RepeaterScript = "doctype-repeater.js"
