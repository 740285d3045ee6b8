package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

// FS holds the page templates and the static assets.
//
//go:embed *.html static
var FS embed.FS

// Static returns the assets directory.
func Static() fs.FS {
	sub, err := fs.Sub(FS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// ParseTemplates parses HTML templates from the embedded filesystem.
func ParseTemplates(files ...string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"rating": func(r float64) string {
			return fmt.Sprintf("%.1f", r)
		},
	}

	return template.New("").Funcs(funcMap).ParseFS(FS, files...)
}
