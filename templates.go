package whisperwall

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path"

	"github.com/rs/zerolog/log"
)

//go:embed web/templates/*.html
var templatesFS embed.FS

type secretsPage struct {
	Secrets []string
}

type errorPage struct {
	Status  int
	Message string
}

// PageRenderer holds the parsed HTML pages keyed by name.
type PageRenderer struct {
	templates map[string]*template.Template
}

func NewPageRenderer() *PageRenderer {
	names := []string{"home", "login", "register", "secrets", "submit", "error"}
	templates := make(map[string]*template.Template)
	for _, name := range names {
		file := path.Join("web/templates", name+".html")
		templates[name] = template.Must(template.ParseFS(templatesFS, "web/templates/layout.html", file))
	}
	return &PageRenderer{templates: templates}
}

func (p *PageRenderer) Render(w io.Writer, name string, data any) error {
	t, ok := p.templates[name]
	if !ok {
		return fmt.Errorf("no such template: %s", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (a *App) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.Renderer.Render(w, name, data); err != nil {
		log.Error().Err(err).Str("page", name).Msg("error rendering page")
	}
}

// renderError writes an explicit failure page with a truthful status code.
// Write paths use this instead of redirecting as if the operation succeeded.
func (a *App) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := a.Renderer.Render(w, "error", errorPage{Status: status, Message: message}); err != nil {
		log.Error().Err(err).Msg("error rendering error page")
	}
}
