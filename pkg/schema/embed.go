package schema

import (
	"embed"
	"io/fs"
)

//go:embed seeds/*.yaml
var embeddedSeeds embed.FS

// DefaultFS returns the bundled seed files.
func DefaultFS() fs.FS {
	sub, err := fs.Sub(embeddedSeeds, "seeds")
	if err != nil {
		panic(err)
	}
	return sub
}
