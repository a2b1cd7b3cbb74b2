package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/listenupapp/memopack/internal/domain"
	domainerrors "github.com/listenupapp/memopack/internal/errors"
	"github.com/listenupapp/memopack/internal/http/response"
	"github.com/listenupapp/memopack/internal/logger"
)

// multipartMemory is how much of a form is buffered in memory before the
// rest spills to temporary files.
const multipartMemory = 32 << 20

// formFile adapts an uploaded part to domain.File.
type formFile struct {
	header *multipart.FileHeader
}

func (f formFile) Name() string { return f.header.Filename }

func (f formFile) Size() int { return int(f.header.Size) }

func (f formFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

// readFormFiles parses a multipart request and returns the files of one
// field in upload order, enforcing the configured limits. The caller must
// call the returned cleanup once the files are no longer needed.
func (s *Server) readFormFiles(w http.ResponseWriter, r *http.Request, field string) ([]domain.File, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.upload.MaxBytes)

	if err := r.ParseMultipartForm(min(s.upload.MaxBytes, multipartMemory)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, domainerrors.TooLarge(fmt.Sprintf("upload exceeds %s", humanize.IBytes(uint64(s.upload.MaxBytes))))
		}
		return nil, nil, domainerrors.Validation("expected a multipart/form-data body")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	headers := r.MultipartForm.File[field]
	if len(headers) > s.upload.MaxFiles {
		cleanup()
		return nil, nil, domainerrors.TooLarge(fmt.Sprintf("at most %d files per upload", s.upload.MaxFiles))
	}

	files := make([]domain.File, len(headers))
	for i, h := range headers {
		files[i] = formFile{header: h}
	}
	return files, cleanup, nil
}

// handleUploadDraftFiles replaces the attachments of a draft.
// PUT /api/v1/sessions/{sessionID}/drafts/{draftID}/files
// Content-Type: multipart/form-data with zero or more "files" fields.
// This is a chi handler (not Huma) because Huma doesn't easily support multipart forms.
func (s *Server) handleUploadDraftFiles(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)
	sessionID := chi.URLParam(r, "sessionID")
	draftID := chi.URLParam(r, "draftID")

	c, err := s.registry.Get(sessionID)
	if err != nil {
		response.HandleError(w, err, log)
		return
	}

	files, cleanup, err := s.readFormFiles(w, r, "files")
	if err != nil {
		response.HandleError(w, err, log)
		return
	}
	defer cleanup()

	if err := c.SetFiles(draftID, files); err != nil {
		response.HandleError(w, err, log)
		return
	}

	d, err := c.Draft(draftID)
	if err != nil {
		response.HandleError(w, err, log)
		return
	}

	log.Debug("Draft attachments replaced",
		"session_id", sessionID,
		"draft_id", draftID,
		"files", len(files),
	)

	response.Success(w, toDraftResponse(d), log)
}
