// Package ui renders the index page from embedded templates.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"lastautoindex/internal/app"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates manages parsed HTML templates.
type Templates struct {
	parsed *template.Template
	policy *bluemonday.Policy
}

// NewTemplates parses all embedded templates. Call this once at app startup.
func NewTemplates() (*Templates, error) {
	t := &Templates{policy: bluemonday.UGCPolicy()}
	parsed, err := template.New("").Funcs(template.FuncMap{
		"notes": t.notes,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	t.parsed = parsed
	return t, nil
}

// notes sanitizes release notes coming from the feed.
func (t *Templates) notes(body string) template.HTML {
	return template.HTML(t.policy.Sanitize(body))
}

// Execute renders a template by name to the writer.
func (t *Templates) Execute(w io.Writer, name string, data any) error {
	return t.parsed.ExecuteTemplate(w, name, data)
}

// Index renders the index page for p.
func (t *Templates) Index(w io.Writer, p *app.Page) error {
	return t.Execute(w, "index.html", p)
}
