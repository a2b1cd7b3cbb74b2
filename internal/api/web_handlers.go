package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// indexPageData contains data for the editor page template.
type indexPageData struct {
	Lang          string
	MaxFiles      int
	MaxBytesLabel string
}

// handleIndex serves the memo editor page.
// GET /
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	base, _ := s.fallback.Tag.Base()
	data := indexPageData{
		Lang:          base.String(),
		MaxFiles:      s.upload.MaxFiles,
		MaxBytesLabel: humanize.IBytes(uint64(s.upload.MaxBytes)),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute index template", "error", err)
	}
}
