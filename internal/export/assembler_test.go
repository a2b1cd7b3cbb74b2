package export

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/listenupapp/memopack/internal/archive"
	"github.com/listenupapp/memopack/internal/domain"
	"github.com/listenupapp/memopack/internal/errors"
	"github.com/listenupapp/memopack/internal/locale"
	"github.com/listenupapp/memopack/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 10, 20, 30, 123000000, time.UTC)

const fixedTimestamp = "2024-05-01T10:20:30.123Z"

func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n), nil
	}
}

func newTestAssembler(opts ...Option) *Assembler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	}
	return New(logger, append(base, opts...)...)
}

func file(name, content string) domain.File {
	return domain.NewBytesFile(name, []byte(content))
}

// failingFile errors on Open.
type failingFile struct{ name string }

func (f failingFile) Name() string { return f.name }
func (f failingFile) Open() (io.ReadCloser, error) {
	return nil, stderrors.New("device not ready")
}

// countingFile records how often it was opened.
type countingFile struct {
	domain.File
	opens *int
}

func (f countingFile) Open() (io.ReadCloser, error) {
	*f.opens++
	return f.File.Open()
}

type recordedExport struct {
	mode, outcome string
	size          int64
	deduplicated  int
}

type fakeRecorder struct {
	mu      sync.Mutex
	exports []recordedExport
}

func (r *fakeRecorder) ObserveExport(mode, outcome string, _ time.Duration, size int64, deduplicated int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, recordedExport{mode, outcome, size, deduplicated})
}

func inspect(t *testing.T, res *Result) *Summary {
	t.Helper()
	s, err := Inspect(res.Data)
	require.NoError(t, err)
	return s
}

func TestAssemble_AllBlankDraftsFail(t *testing.T) {
	a := newTestAssembler()

	drafts := []domain.Draft{{}, {Text: "   "}, {Text: "\n\t"}}
	res, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: drafts})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
	assert.Equal(t, locale.Default().NoContent, err.Error())
}

func TestAssemble_NoDraftsFail(t *testing.T) {
	a := newTestAssembler()

	_, err := a.Assemble(context.Background(), Request{Mode: ModeNotes})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
	assert.Equal(t, locale.Default().NoDrafts, err.Error())
}

func TestAssemble_NoImagesFail(t *testing.T) {
	a := newTestAssembler()

	_, err := a.Assemble(context.Background(), Request{Mode: ModeBulk})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
	assert.Equal(t, locale.Default().NoImages, err.Error())
}

func TestAssemble_UnknownMode(t *testing.T) {
	a := newTestAssembler()

	_, err := a.Assemble(context.Background(), Request{Mode: "zip-bomb"})

	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAssemble_TextOnlyDraft(t *testing.T) {
	a := newTestAssembler()

	res, err := a.Assemble(context.Background(), Request{
		Mode:   ModeNotes,
		Drafts: []domain.Draft{{Text: "hello"}},
	})
	require.NoError(t, err)

	s := inspect(t, res)
	require.Len(t, s.Memos, 1)
	assert.Equal(t, domain.Memo{
		ID:         "00000000-0000-4000-8000-000000000001",
		Title:      "",
		Content:    "hello",
		TagIDs:     []string{},
		ImagePaths: []string{},
		CreatedAt:  fixedTimestamp,
		UpdatedAt:  fixedTimestamp,
		SortOrder:  0,
		ExtraNote:  "",
		CategoryID: "import",
	}, s.Memos[0])
	assert.Empty(t, s.Images)
	assert.True(t, s.HasFolder)
	assert.True(t, s.Valid())

	assert.Equal(t, 1, res.Memos)
	assert.Equal(t, 0, res.Images)
	assert.Equal(t, fixedTimestamp, res.CreatedAt)
	assert.Equal(t, locale.Default().Created, res.Notice)
}

func TestAssemble_ExactMemoDataBytes(t *testing.T) {
	a := newTestAssembler()

	res, err := a.Assemble(context.Background(), Request{
		Mode:   ModeNotes,
		Drafts: []domain.Draft{{Text: "a <b> & c"}},
	})
	require.NoError(t, err)

	r, err := archive.NewReader(res.Data)
	require.NoError(t, err)

	data, err := r.ReadFile(domain.MemoDataFile)
	require.NoError(t, err)

	want := `[
  {
    "id": "00000000-0000-4000-8000-000000000001",
    "title": "",
    "content": "a <b> & c",
    "tagIds": [],
    "imagePaths": [],
    "createdAt": "2024-05-01T10:20:30.123Z",
    "updatedAt": "2024-05-01T10:20:30.123Z",
    "sortOrder": 0,
    "extraNote": "",
    "categoryId": "import"
  }
]`
	assert.Equal(t, want, string(data))

	tags, err := r.ReadFile(domain.TagDataFile)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(tags))

	version, err := r.ReadFile(domain.VersionFile)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"dataVersion\": 1\n}", string(version))
}

func TestAssemble_ArchiveLayoutOrder(t *testing.T) {
	a := newTestAssembler()

	res, err := a.Assemble(context.Background(), Request{
		Mode:   ModeNotes,
		Drafts: []domain.Draft{{Text: "x", Files: []domain.File{file("b.png", "B"), file("a.png", "A")}}},
	})
	require.NoError(t, err)

	r, err := archive.NewReader(res.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"memo_data.json",
		"category_data.json",
		"tag_data.json",
		"version.json",
		"images/",
		"images/b.png",
		"images/a.png",
	}, r.Names())
}

func TestAssemble_ContentKeepsWhitespace(t *testing.T) {
	a := newTestAssembler()

	res, err := a.Assemble(context.Background(), Request{
		Mode:   ModeNotes,
		Drafts: []domain.Draft{{Text: "  padded\n"}},
	})
	require.NoError(t, err)

	s := inspect(t, res)
	assert.Equal(t, "  padded\n", s.Memos[0].Content)
}

func TestAssemble_SkipsBlankDraftsKeepsOrder(t *testing.T) {
	a := newTestAssembler()

	drafts := []domain.Draft{
		{Text: "first"},
		{Text: " "},
		{Files: []domain.File{file("only.png", "img")}},
		{},
		{Text: "last"},
	}
	res, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: drafts})
	require.NoError(t, err)

	s := inspect(t, res)
	require.Len(t, s.Memos, 3)
	assert.Equal(t, "first", s.Memos[0].Content)
	assert.Equal(t, "", s.Memos[1].Content)
	assert.Equal(t, []string{"images/only.png"}, s.Memos[1].ImagePaths)
	assert.Equal(t, "last", s.Memos[2].Content)
}

func TestAssemble_DuplicateNamesFirstWins(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAssembler(WithRecorder(rec))

	drafts := []domain.Draft{
		{Text: "one", Files: []domain.File{file("cat.png", "first bytes")}},
		{Text: "two", Files: []domain.File{file("cat.png", "second bytes"), file("dog.png", "woof")}},
	}
	res, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: drafts})
	require.NoError(t, err)

	s := inspect(t, res)
	assert.Equal(t, []string{"images/cat.png", "images/dog.png"}, s.Images)
	assert.Equal(t, []string{"images/cat.png"}, s.Memos[0].ImagePaths)
	assert.Equal(t, []string{"images/cat.png", "images/dog.png"}, s.Memos[1].ImagePaths)

	r, err := archive.NewReader(res.Data)
	require.NoError(t, err)
	data, err := r.ReadFile("images/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "first bytes", string(data))

	assert.Equal(t, 2, res.Images)
	assert.Equal(t, 1, res.Deduplicated)

	require.Len(t, rec.exports, 1)
	assert.Equal(t, recordedExport{"notes", metrics.OutcomeSuccess, int64(len(res.Data)), 1}, rec.exports[0])
}

func TestAssemble_DuplicateNotReadAgain(t *testing.T) {
	a := newTestAssembler()

	opens := 0
	second := countingFile{File: file("same.png", "2"), opens: &opens}
	drafts := []domain.Draft{
		{Files: []domain.File{file("same.png", "1")}},
		{Files: []domain.File{second}},
	}

	_, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: drafts})
	require.NoError(t, err)
	assert.Zero(t, opens)
}

func TestAssemble_CategoryAndTags(t *testing.T) {
	en, err := locale.Lookup("en")
	require.NoError(t, err)

	tests := []struct {
		name    string
		catalog locale.Catalog
		want    string
	}{
		{"default", locale.Catalog{}, "インポート"},
		{"english", en, "Imported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssembler()
			res, err := a.Assemble(context.Background(), Request{
				Mode:    ModeNotes,
				Drafts:  []domain.Draft{{Text: "x"}},
				Catalog: tt.catalog,
			})
			require.NoError(t, err)

			s := inspect(t, res)
			require.Len(t, s.Categories, 1)
			assert.Equal(t, "import", s.Categories[0].ID)
			assert.Equal(t, tt.want, s.Categories[0].Name)
			assert.Nil(t, s.Categories[0].ColorHex)
			assert.Equal(t, fixedTimestamp, s.Categories[0].LastEditedAt)
			assert.False(t, s.Categories[0].ShowDateInList)

			assert.NotNil(t, s.Tags)
			assert.Empty(t, s.Tags)
			assert.Equal(t, 1, s.Version.DataVersion)
		})
	}
}

func TestAssemble_BulkOneMemoPerImage(t *testing.T) {
	a := newTestAssembler()

	images := []domain.File{file("1.jpg", "a"), file("2.jpg", "b"), file("1.jpg", "c")}
	res, err := a.Assemble(context.Background(), Request{Mode: ModeBulk, Images: images})
	require.NoError(t, err)

	s := inspect(t, res)
	require.Len(t, s.Memos, 3)
	for i, m := range s.Memos {
		assert.Empty(t, m.Content)
		assert.Len(t, m.ImagePaths, 1)
		assert.Equal(t, "images/"+images[i].Name(), m.ImagePaths[0])
	}
	assert.Equal(t, []string{"images/1.jpg", "images/2.jpg"}, s.Images)
	assert.True(t, s.Valid())
	assert.True(t, strings.HasPrefix(res.Filename, PrefixBulk+"_"))
}

func TestAssemble_EveryImagePathResolves(t *testing.T) {
	a := newTestAssembler()

	drafts := []domain.Draft{
		{Text: "a", Files: []domain.File{file("x.png", "1"), file("y.png", "2")}},
		{Files: []domain.File{file("y.png", "3"), file("z.png", "4")}},
		{Text: "", Files: nil},
		{Text: "b", Files: []domain.File{file("x.png", "5")}},
	}
	res, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: drafts})
	require.NoError(t, err)

	s := inspect(t, res)
	assert.Empty(t, s.Missing)
	for _, m := range s.Memos {
		for _, p := range m.ImagePaths {
			assert.Contains(t, s.Images, p)
		}
	}
}

func TestAssemble_SharedTimestampAndFreshIDs(t *testing.T) {
	a := New(nil, WithClock(func() time.Time { return fixedNow }))

	res, err := a.Assemble(context.Background(), Request{
		Mode:   ModeNotes,
		Drafts: []domain.Draft{{Text: "1"}, {Text: "2"}, {Text: "3"}},
	})
	require.NoError(t, err)

	s := inspect(t, res)
	ids := map[string]bool{}
	for _, m := range s.Memos {
		assert.Equal(t, fixedTimestamp, m.CreatedAt)
		assert.Equal(t, fixedTimestamp, m.UpdatedAt)
		assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`, m.ID)
		ids[m.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestAssemble_Filename(t *testing.T) {
	a := newTestAssembler()

	tests := []struct {
		name   string
		mode   Mode
		prefix string
		want   string
	}{
		{"notes default", ModeNotes, "", "memo_import_2024-05-01T10-20-30-123Z.zip"},
		{"bulk default", ModeBulk, "", "image_memo_import_2024-05-01T10-20-30-123Z.zip"},
		{"custom", ModeNotes, PrefixCLINotes, "memo_cli_import_2024-05-01T10-20-30-123Z.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Mode: tt.mode, Prefix: tt.prefix}
			if tt.mode == ModeBulk {
				req.Images = []domain.File{file("a.png", "a")}
			} else {
				req.Drafts = []domain.Draft{{Text: "x"}}
			}
			res, err := a.Assemble(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Filename)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "p_2024-01-02T03-04-05-006Z.zip", Filename("p", "2024-01-02T03:04:05.006Z"))
}

func TestAssemble_ReadFailureIsInternal(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAssembler(WithRecorder(rec))

	drafts := []domain.Draft{{Text: "x", Files: []domain.File{failingFile{name: "broken.png"}}}}
	res, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: drafts})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.Contains(t, err.Error(), "broken.png")
	assert.Contains(t, err.Error(), "device not ready")

	require.Len(t, rec.exports, 1)
	assert.Equal(t, metrics.OutcomeError, rec.exports[0].outcome)
}

func TestAssemble_IDFailureIsInternal(t *testing.T) {
	a := newTestAssembler(WithIDGenerator(func() (string, error) {
		return "", stderrors.New("entropy exhausted")
	}))

	_, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: []domain.Draft{{Text: "x"}}})

	assert.True(t, errors.Is(err, errors.ErrInternal))
}

func TestAssemble_Cancelled(t *testing.T) {
	a := newTestAssembler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	drafts := []domain.Draft{{Files: []domain.File{file("a.png", "a")}}}
	_, err := a.Assemble(ctx, Request{Mode: ModeNotes, Drafts: drafts})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_EmptyOutcomeRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAssembler(WithRecorder(rec))

	_, err := a.Assemble(context.Background(), Request{Mode: ModeNotes, Drafts: []domain.Draft{{}}})
	require.Error(t, err)

	require.Len(t, rec.exports, 1)
	assert.Equal(t, recordedExport{"notes", metrics.OutcomeEmpty, 0, 0}, rec.exports[0])
}

func TestInspect_ReportsMissingImages(t *testing.T) {
	w := archive.NewWriter(fixedNow)
	memos := []domain.Memo{domain.NewMemo("m1", "", []string{"images/gone.png"}, fixedTimestamp)}
	require.NoError(t, w.WriteJSON(domain.MemoDataFile, memos))
	require.NoError(t, w.WriteJSON(domain.CategoryDataFile, []domain.Category{domain.ImportCategory("x", fixedTimestamp)}))
	require.NoError(t, w.WriteJSON(domain.TagDataFile, []domain.Tag{}))
	require.NoError(t, w.WriteJSON(domain.VersionFile, domain.CurrentVersion()))
	blob, err := w.Close()
	require.NoError(t, err)

	s, err := Inspect(blob.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{"images/gone.png"}, s.Missing)
	assert.False(t, s.HasFolder)
	assert.False(t, s.Valid())
}

func TestInspect_MissingEntry(t *testing.T) {
	blob, err := archive.NewWriter(fixedNow).Close()
	require.NoError(t, err)

	_, err = Inspect(blob.Data)
	assert.ErrorIs(t, err, archive.ErrFileNotFound)
}
