// Package views renders the server-side HTML pages. All user-provided
// content (comments, profile text) goes through html/template escaping.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/mkovacevic/shopfront/pkg"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{
		templates: templates,
	}, nil
}

// Render executes the named template into a buffer first, so a template
// error never leaves a half-written page behind.
func (r *Renderer) Render(w http.ResponseWriter, name string, statusCode int, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.HTML, buf.Bytes(), statusCode)
	return nil
}
