// Package export turns drafts or loose images into a memo import archive.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/memopack/internal/archive"
	"github.com/listenupapp/memopack/internal/domain"
	"github.com/listenupapp/memopack/internal/errors"
	"github.com/listenupapp/memopack/internal/id"
	"github.com/listenupapp/memopack/internal/locale"
	"github.com/listenupapp/memopack/internal/metrics"
)

// Mode selects how the request is turned into memos.
type Mode string

const (
	// ModeNotes exports one memo per non-blank draft.
	ModeNotes Mode = "notes"
	// ModeBulk exports one memo per image.
	ModeBulk Mode = "bulk"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeNotes || m == ModeBulk
}

// Archive filename prefixes, one per entry point.
const (
	PrefixNotes    = "memo_import"
	PrefixBulk     = "image_memo_import"
	PrefixCLINotes = "memo_cli_import"
	PrefixCLIBulk  = "image_memo_cli_import"
)

// Request describes one export.
type Request struct {
	Mode Mode

	// Drafts are exported in ModeNotes.
	Drafts []domain.Draft

	// Images are exported in ModeBulk.
	Images []domain.File

	// Prefix of the archive filename. Defaults by mode.
	Prefix string

	// Catalog supplies the category name and notices. Defaults to
	// locale.Default().
	Catalog locale.Catalog
}

// Result is a finished archive.
type Result struct {
	Filename     string
	Data         []byte
	Checksum     string
	Memos        int
	Images       int // distinct files stored under images/
	Deduplicated int // attachments skipped for a repeated name
	CreatedAt    string
	Notice       string
}

// Recorder receives one observation per Assemble call.
type Recorder interface {
	ObserveExport(mode, outcome string, elapsed time.Duration, size int64, deduplicated int)
}

// Assembler builds archives. It holds no per-export state and is safe for
// concurrent use.
type Assembler struct {
	logger   *slog.Logger
	now      func() time.Time
	newID    func() (string, error)
	recorder Recorder
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithIDGenerator replaces the memo ID generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(a *Assembler) { a.newID = fn }
}

// WithRecorder reports every export to r.
func WithRecorder(r Recorder) Option {
	return func(a *Assembler) { a.recorder = r }
}

// New creates an Assembler.
func New(logger *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		logger: logger,
		now:    time.Now,
		newID:  id.NewMemoID,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// Assemble builds the archive for req.
//
// It returns an EMPTY_INPUT error when no memo would be produced, and an
// INTERNAL error wrapping the cause when an attachment cannot be read or
// the archive cannot be written. Cancellation is checked before each
// attachment read.
func (a *Assembler) Assemble(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() { a.observe(req.Mode, start, res, err) }()

	if !req.Mode.Valid() {
		return nil, errors.Validation(fmt.Sprintf("unknown export mode %q", req.Mode))
	}
	catalog := req.Catalog
	if catalog.CategoryName == "" {
		catalog = locale.Default()
	}
	prefix := req.Prefix
	if prefix == "" {
		prefix = defaultPrefix(req.Mode)
	}

	exportedAt := a.now()
	timestamp := domain.FormatTimestamp(exportedAt)

	var (
		memos []domain.Memo
		files []domain.File
	)
	switch req.Mode {
	case ModeNotes:
		if len(req.Drafts) == 0 {
			return nil, errors.EmptyInput(catalog.NoDrafts)
		}
		memos, files, err = a.fromDrafts(req.Drafts, timestamp)
	case ModeBulk:
		if len(req.Images) == 0 {
			return nil, errors.EmptyInput(catalog.NoImages)
		}
		memos, files, err = a.fromImages(req.Images, timestamp)
	}
	if err != nil {
		return nil, err
	}
	if len(memos) == 0 {
		return nil, errors.EmptyInput(catalog.NoContent)
	}

	w := archive.NewWriter(exportedAt)

	entries := []struct {
		name  string
		value any
	}{
		{domain.MemoDataFile, memos},
		{domain.CategoryDataFile, []domain.Category{domain.ImportCategory(catalog.CategoryName, timestamp)}},
		{domain.TagDataFile, []domain.Tag{}},
		{domain.VersionFile, domain.CurrentVersion()},
	}
	for _, e := range entries {
		if err := w.WriteJSON(e.name, e.value); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "write %s", e.name)
		}
	}

	if err := w.Folder(domain.ImagesDir); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create images folder")
	}

	stored, skipped, err := addImages(ctx, w, files)
	if err != nil {
		return nil, err
	}

	blob, err := w.Close()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "finalize archive")
	}

	res = &Result{
		Filename:     Filename(prefix, timestamp),
		Data:         blob.Data,
		Checksum:     blob.Checksum,
		Memos:        len(memos),
		Images:       stored,
		Deduplicated: skipped,
		CreatedAt:    timestamp,
		Notice:       catalog.Created,
	}

	a.logger.Info("Archive assembled",
		"mode", req.Mode,
		"filename", res.Filename,
		"memos", res.Memos,
		"images", res.Images,
		"deduplicated", res.Deduplicated,
		"bytes", len(res.Data),
	)

	return res, nil
}

func (a *Assembler) fromDrafts(drafts []domain.Draft, timestamp string) ([]domain.Memo, []domain.File, error) {
	var (
		memos []domain.Memo
		files []domain.File
	)
	for _, d := range drafts {
		if d.IsBlank() {
			continue
		}
		memoID, err := a.newID()
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInternal, "generate memo id")
		}
		paths := make([]string, len(d.Files))
		for i, f := range d.Files {
			paths[i] = domain.ImagePath(f.Name())
		}
		memos = append(memos, domain.NewMemo(memoID, d.Text, paths, timestamp))
		files = append(files, d.Files...)
	}
	return memos, files, nil
}

func (a *Assembler) fromImages(images []domain.File, timestamp string) ([]domain.Memo, []domain.File, error) {
	memos := make([]domain.Memo, 0, len(images))
	for _, f := range images {
		memoID, err := a.newID()
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInternal, "generate memo id")
		}
		memos = append(memos, domain.NewMemo(memoID, "", []string{domain.ImagePath(f.Name())}, timestamp))
	}
	return memos, images, nil
}

// addImages stores each distinct filename once, in order. The first file
// with a given name wins.
func addImages(ctx context.Context, w *archive.Writer, files []domain.File) (stored, skipped int, err error) {
	added := make(map[string]struct{}, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stored, skipped, err
		}

		name := f.Name()
		if _, ok := added[name]; ok {
			skipped++
			continue
		}

		if err := copyImage(w, f); err != nil {
			return stored, skipped, errors.Wrapf(err, errors.CodeInternal, "add image %q", name)
		}
		added[name] = struct{}{}
		stored++
	}
	return stored, skipped, nil
}

func copyImage(w *archive.Writer, f domain.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = w.Copy(domain.ImagePath(f.Name()), rc)
	return err
}

func (a *Assembler) observe(mode Mode, start time.Time, res *Result, err error) {
	if !mode.Valid() {
		return
	}
	elapsed := time.Since(start)

	outcome := metrics.OutcomeError
	var size int64
	var deduplicated int
	switch {
	case err == nil:
		outcome = metrics.OutcomeSuccess
		size = int64(len(res.Data))
		deduplicated = res.Deduplicated
	case errors.Is(err, errors.ErrEmptyInput):
		outcome = metrics.OutcomeEmpty
	default:
		a.logger.Error("Archive assembly failed", "mode", mode, "error", err)
	}

	if a.recorder != nil {
		a.recorder.ObserveExport(string(mode), outcome, elapsed, size, deduplicated)
	}
}

func defaultPrefix(m Mode) string {
	if m == ModeBulk {
		return PrefixBulk
	}
	return PrefixNotes
}

// Filename derives the archive name from a prefix and an export timestamp.
func Filename(prefix, timestamp string) string {
	return prefix + "_" + strings.NewReplacer(":", "-", ".", "-").Replace(timestamp) + ".zip"
}
