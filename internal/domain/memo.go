// Package domain defines the records written into a memo import archive and
// the in-memory drafts they are built from.
package domain

import "time"

// Fixed values of the import schema.
const (
	// ImportCategoryID is the category every exported memo belongs to.
	ImportCategoryID = "import"

	// ImagesDir is the archive folder holding attached images.
	ImagesDir = "images"

	// DataVersion is the schema version written to version.json.
	DataVersion = 1
)

// Archive entry names.
const (
	MemoDataFile     = "memo_data.json"
	CategoryDataFile = "category_data.json"
	TagDataFile      = "tag_data.json"
	VersionFile      = "version.json"
)

// TimestampLayout renders times the way the importer stores them:
// UTC, millisecond precision, trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Memo is one exported note. Field order matches the importer's schema.
type Memo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	TagIDs     []string `json:"tagIds"`
	ImagePaths []string `json:"imagePaths"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
	SortOrder  int      `json:"sortOrder"`
	ExtraNote  string   `json:"extraNote"`
	CategoryID string   `json:"categoryId"`
}

// NewMemo builds a memo in the import category. ImagePaths is never nil so
// it serializes as [] rather than null.
func NewMemo(memoID, content string, imagePaths []string, timestamp string) Memo {
	if imagePaths == nil {
		imagePaths = []string{}
	}
	return Memo{
		ID:         memoID,
		Title:      "",
		Content:    content,
		TagIDs:     []string{},
		ImagePaths: imagePaths,
		CreatedAt:  timestamp,
		UpdatedAt:  timestamp,
		SortOrder:  0,
		ExtraNote:  "",
		CategoryID: ImportCategoryID,
	}
}

// Category is a memo category record.
type Category struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ColorHex       *string `json:"colorHex"`
	SortOrder      int     `json:"sortOrder"`
	LastEditedAt   string  `json:"lastEditedAt"`
	ShowDateInList bool    `json:"showDateInList"`
}

// ImportCategory returns the single category written into every archive.
func ImportCategory(name, timestamp string) Category {
	return Category{
		ID:             ImportCategoryID,
		Name:           name,
		ColorHex:       nil,
		SortOrder:      0,
		LastEditedAt:   timestamp,
		ShowDateInList: false,
	}
}

// Tag is a memo tag record. Exports never contain tags; the type exists so
// tag_data.json is typed like its siblings.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Version is the content of version.json.
type Version struct {
	DataVersion int `json:"dataVersion"`
}

// CurrentVersion returns the version record for this schema.
func CurrentVersion() Version {
	return Version{DataVersion: DataVersion}
}

// ImagePath returns the archive path of an attached image.
func ImagePath(filename string) string {
	return ImagesDir + "/" + filename
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
