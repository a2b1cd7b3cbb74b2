// Package archive writes and reads the zip containers produced by an export.
package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"
)

// ErrClosed is returned when writing to a finished archive.
var ErrClosed = errors.New("archive already closed")

// Blob is a finished archive held in memory.
type Blob struct {
	Data     []byte
	Checksum string // hex SHA-256 of Data
}

// Size returns the archive size in bytes.
func (b *Blob) Size() int64 { return int64(len(b.Data)) }

// Writer builds a zip archive in memory. Entries keep insertion order.
type Writer struct {
	buf      *bytes.Buffer
	hash     hash.Hash
	zw       *zip.Writer
	modified time.Time
	entries  []string
	closed   bool
}

// NewWriter creates a Writer stamping every entry with modified.
func NewWriter(modified time.Time) *Writer {
	buf := &bytes.Buffer{}
	h := sha256.New()
	return &Writer{
		buf:      buf,
		hash:     h,
		zw:       zip.NewWriter(io.MultiWriter(buf, h)),
		modified: modified,
	}
}

func (w *Writer) create(name string) (io.Writer, error) {
	if w.closed {
		return nil, ErrClosed
	}
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.modified,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	w.entries = append(w.entries, name)
	return fw, nil
}

// Folder adds an explicit directory entry. The entry is present even if
// no file is ever added under it.
func (w *Writer) Folder(name string) error {
	name = strings.TrimSuffix(name, "/") + "/"
	if w.closed {
		return ErrClosed
	}
	_, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: w.modified,
	})
	if err != nil {
		return fmt.Errorf("create folder %s: %w", name, err)
	}
	w.entries = append(w.entries, name)
	return nil
}

// WriteJSON stores v as UTF-8 JSON with two-space indentation. HTML
// characters are not escaped and there is no trailing newline.
func (w *Writer) WriteJSON(name string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	fw, err := w.create(name)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Copy stores everything read from r under name.
func (w *Writer) Copy(name string, r io.Reader) (int64, error) {
	fw, err := w.create(name)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(fw, r)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", name, err)
	}
	return n, nil
}

// Entries returns entry names in the order they were added.
func (w *Writer) Entries() []string {
	return append([]string(nil), w.entries...)
}

// Close finalizes the archive and returns its bytes.
func (w *Writer) Close() (*Blob, error) {
	if w.closed {
		return nil, ErrClosed
	}
	w.closed = true
	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return &Blob{
		Data:     w.buf.Bytes(),
		Checksum: hex.EncodeToString(w.hash.Sum(nil)),
	}, nil
}

// MarshalJSON renders v with two-space indentation and without HTML
// escaping, matching what browsers produce for JSON.stringify(v, null, 2).
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 raw. encoding/json
// escapes them even with HTML escaping off; JSON.stringify does not.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		// Every escape is consumed whole, so an escaped backslash followed
		// by "u2028" text is never mistaken for the escape.
		if rest := data[i:]; bytes.HasPrefix(rest, []byte(`\u2028`)) || bytes.HasPrefix(rest, []byte(`\u2029`)) {
			if rest[5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
