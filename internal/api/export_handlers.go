package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/memopack/internal/export"
	"github.com/listenupapp/memopack/internal/http/response"
	"github.com/listenupapp/memopack/internal/logger"
)

// Response headers describing a finished archive.
const (
	HeaderMemoCount     = "X-Memo-Count"
	HeaderImageCount    = "X-Image-Count"
	HeaderArchiveNotice = "X-Archive-Notice"
	HeaderArchiveSHA256 = "X-Archive-SHA256"
)

var archiveHeaderNames = []string{
	"Content-Disposition",
	HeaderMemoCount,
	HeaderImageCount,
	HeaderArchiveNotice,
	HeaderArchiveSHA256,
}

func (s *Server) registerExportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "exportSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionID}/export",
		Summary:     "Export session",
		Description: "Builds a memo import archive from the session's drafts and clears them on success. " +
			"Blank drafts are skipped; attachments sharing a filename are stored once.",
		Tags:        []string{"Export"},
		Middlewares: huma.Middlewares{s.humaRateLimit},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "The archive",
				Content: map[string]*huma.MediaType{
					"application/zip": {},
				},
			},
		},
	}, s.handleExportSession)
}

// ExportSessionInput selects the session to export.
type ExportSessionInput struct {
	SessionID      string `path:"sessionID" doc:"Session ID"`
	AcceptLanguage string `header:"Accept-Language" doc:"Picks the category name and notices"`
}

func (s *Server) handleExportSession(ctx context.Context, input *ExportSessionInput) (*huma.StreamResponse, error) {
	c, err := s.registry.Get(input.SessionID)
	if err != nil {
		return nil, s.humaError(ctx, err)
	}

	drafts, version := c.SnapshotVersion()
	res, err := s.assembler.Assemble(ctx, export.Request{
		Mode:    export.ModeNotes,
		Drafts:  drafts,
		Prefix:  export.PrefixNotes,
		Catalog: s.catalog(input.AcceptLanguage),
	})
	if err != nil {
		return nil, s.humaError(ctx, err)
	}

	// The page starts over after a successful export, unless it was edited
	// while the archive was being built.
	log := logger.FromContext(ctx, s.logger)
	reset, err := c.ResetIfUnchanged(version)
	switch {
	case err != nil:
		log.Warn("Failed to reset session after export", "session_id", c.ID(), "error", err)
	case !reset:
		log.Info("Session edited during export, keeping drafts", "session_id", c.ID())
	}

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			for name, values := range archiveHeaders(res) {
				hctx.SetHeader(name, values[0])
			}
			hctx.SetStatus(http.StatusOK)
			if _, err := io.Copy(hctx.BodyWriter(), bytes.NewReader(res.Data)); err != nil {
				s.logger.Warn("Failed to stream archive", "filename", res.Filename, "error", err)
			}
		},
	}, nil
}

// handleBulkExport builds one memo per uploaded image.
// POST /api/v1/bulk/export
// Content-Type: multipart/form-data with one or more "images" fields.
func (s *Server) handleBulkExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	images, cleanup, err := s.readFormFiles(w, r, "images")
	if err != nil {
		response.HandleError(w, err, log)
		return
	}
	defer cleanup()

	res, err := s.assembler.Assemble(r.Context(), export.Request{
		Mode:    export.ModeBulk,
		Images:  images,
		Prefix:  export.PrefixBulk,
		Catalog: s.catalog(r.Header.Get("Accept-Language")),
	})
	if err != nil {
		response.HandleError(w, err, log)
		return
	}

	writeArchive(w, res, log)
}

// archiveHeaders describes res for the download.
func archiveHeaders(res *export.Result) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set(HeaderMemoCount, strconv.Itoa(res.Memos))
	h.Set(HeaderImageCount, strconv.Itoa(res.Images))
	h.Set(HeaderArchiveNotice, url.PathEscape(res.Notice))
	h.Set(HeaderArchiveSHA256, res.Checksum)
	return h
}

func writeArchive(w http.ResponseWriter, res *export.Result, log *slog.Logger) {
	for name, values := range archiveHeaders(res) {
		w.Header()[name] = values
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		log.Warn("Failed to write archive", "filename", res.Filename, "error", err)
	}
}
