package export

import (
	"fmt"
	"slices"

	"github.com/listenupapp/memopack/internal/archive"
	"github.com/listenupapp/memopack/internal/domain"
)

// Summary describes the content of an import archive.
type Summary struct {
	Memos      []domain.Memo
	Categories []domain.Category
	Tags       []domain.Tag
	Version    domain.Version
	Images     []string // entries under images/, in archive order
	HasFolder  bool     // images/ directory entry present

	// Missing lists imagePaths entries with no matching file.
	Missing []string
}

// Valid reports whether the archive has the full layout and every image
// reference resolves.
func (s *Summary) Valid() bool {
	return s.HasFolder && len(s.Missing) == 0 && len(s.Categories) == 1
}

// Inspect reads an archive produced by Assemble and checks that every memo
// image reference points at a stored file.
func Inspect(data []byte) (*Summary, error) {
	r, err := archive.NewReader(data)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Images:    r.Files(domain.ImagesDir),
		HasFolder: r.Has(domain.ImagesDir + "/"),
	}

	if s.Memos, err = archive.ReadJSON[[]domain.Memo](r, domain.MemoDataFile); err != nil {
		return nil, err
	}
	if s.Categories, err = archive.ReadJSON[[]domain.Category](r, domain.CategoryDataFile); err != nil {
		return nil, err
	}
	if s.Tags, err = archive.ReadJSON[[]domain.Tag](r, domain.TagDataFile); err != nil {
		return nil, err
	}
	if s.Version, err = archive.ReadJSON[domain.Version](r, domain.VersionFile); err != nil {
		return nil, err
	}
	if s.Version.DataVersion != domain.DataVersion {
		return nil, fmt.Errorf("unsupported data version %d", s.Version.DataVersion)
	}

	for _, m := range s.Memos {
		for _, p := range m.ImagePaths {
			if !slices.Contains(s.Images, p) && !slices.Contains(s.Missing, p) {
				s.Missing = append(s.Missing, p)
			}
		}
	}

	return s, nil
}
