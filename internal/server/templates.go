package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFiles embed.FS

// pageData is the payload every template renders with.
type pageData struct {
	Title        string
	Notice       string
	GoogleAuthed bool
	WikiAuthed   bool
	Data         any
}

// loadTemplates parses each page template against the shared base layout.
func loadTemplates() (map[string]*template.Template, error) {
	pages := []string{
		"home", "source", "gallery", "metadata",
		"wiki_login", "results", "privacy", "terms", "about",
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(templateFiles, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = t
	}

	return templates, nil
}

func renderTemplate(w io.Writer, templates map[string]*template.Template, name string, data pageData) error {
	t, ok := templates[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}
