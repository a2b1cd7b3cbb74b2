package domain

import (
	"bytes"
	"io"
	"strings"
	"unicode"
)

// File is an attached image. Bytes are read on demand so that a failing
// read surfaces during export rather than at attach time.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Sizer is implemented by files that know their size without being read.
type Sizer interface {
	Size() int
}

// Draft is a note that has not been exported yet.
type Draft struct {
	ID    string
	Text  string
	Files []File
}

// IsBlank reports whether the draft has neither text nor files.
// Blank drafts are never exported.
func (d Draft) IsBlank() bool {
	return len(d.Files) == 0 && TrimText(d.Text) == ""
}

// FileNames returns the attachment names in order.
func (d Draft) FileNames() []string {
	names := make([]string, len(d.Files))
	for i, f := range d.Files {
		names[i] = f.Name()
	}
	return names
}

// TrimText strips leading and trailing whitespace, including the BOM that
// browsers treat as whitespace.
func TrimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// BytesFile is a File held in memory.
type BytesFile struct {
	FileName string
	Data     []byte
}

// NewBytesFile creates an in-memory file.
func NewBytesFile(name string, data []byte) *BytesFile {
	return &BytesFile{FileName: name, Data: data}
}

// Name implements File.
func (f *BytesFile) Name() string { return f.FileName }

// Size returns the file size in bytes.
func (f *BytesFile) Size() int { return len(f.Data) }

// Open implements File.
func (f *BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
