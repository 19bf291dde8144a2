package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// pageTemplates is the parsed set of all page templates.
var pageTemplates = mustParseTemplates()

func mustParseTemplates() *template.Template {
	t, err := template.New("").ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		panic("parse templates: " + err.Error())
	}
	return t
}

// executeTemplate executes the named template with data into w.
func executeTemplate(w io.Writer, name string, data interface{}) error {
	return pageTemplates.ExecuteTemplate(w, name, data)
}

// indexData feeds the index template.
type indexData struct {
	Examples []string
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := executeTemplate(&buf, "index", indexData{Examples: h.examples}); err != nil {
		log.Error().Err(err).Msg("Failed to render index")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
