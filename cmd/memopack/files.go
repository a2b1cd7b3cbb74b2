package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/listenupapp/memopack/internal/domain"
)

// diskFile is an image on disk. It is opened only when the archive is
// written, so a missing file fails the export rather than the parse.
type diskFile struct {
	path string
}

func (f diskFile) Name() string { return filepath.Base(f.path) }

func (f diskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

func diskFiles(paths []string) []domain.File {
	files := make([]domain.File, len(paths))
	for i, p := range paths {
		files[i] = diskFile{path: p}
	}
	return files
}
