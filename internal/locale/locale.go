// Package locale picks the user-facing strings of an export: the name of
// the import category and the notices shown after an export attempt.
package locale

import (
	"fmt"

	"golang.org/x/text/language"
)

// Catalog holds the strings for one language.
type Catalog struct {
	Tag language.Tag

	// CategoryName is written into category_data.json.
	CategoryName string

	// NoDrafts is shown when an export is requested with no memo blocks at all.
	NoDrafts string

	// NoContent is shown when every memo block is blank.
	NoContent string

	// NoImages is shown when a bulk export has no images.
	NoImages string

	// Created is the success notice.
	Created string
}

var catalogs = []Catalog{
	{
		Tag:          language.Japanese,
		CategoryName: "インポート",
		NoDrafts:     "メモを1つ以上追加してください",
		NoContent:    "本文または画像が入力されたメモを1つ以上追加してください",
		NoImages:     "画像を1つ以上選択してください",
		Created:      "zipファイルを作成しました！",
	},
	{
		Tag:          language.English,
		CategoryName: "Imported",
		NoDrafts:     "Add at least one memo",
		NoContent:    "Add at least one memo with text or images",
		NoImages:     "Select at least one image",
		Created:      "Created the zip file!",
	},
}

var matcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(catalogs))
	for i, c := range catalogs {
		tags[i] = c.Tag
	}
	return tags
}

// Default is the catalog used when nothing else matches.
func Default() Catalog {
	return catalogs[0]
}

// Supported lists the base language codes that have a catalog.
func Supported() []string {
	codes := make([]string, len(catalogs))
	for i, c := range catalogs {
		base, _ := c.Tag.Base()
		codes[i] = base.String()
	}
	return codes
}

// Lookup returns the catalog for a BCP 47 tag such as "ja" or "en-GB".
func Lookup(tag string) (Catalog, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse language %q: %w", tag, err)
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return Catalog{}, fmt.Errorf("unsupported language %q", tag)
	}
	return catalogs[idx], nil
}

// CategoryName returns the import category name for tag, falling back to
// the default catalog for unknown tags.
func CategoryName(tag string) string {
	c, err := Lookup(tag)
	if err != nil {
		return Default().CategoryName
	}
	return c.CategoryName
}

// Match picks a catalog from an Accept-Language header value. An empty or
// unmatched header yields fallback.
func Match(acceptLanguage string, fallback Catalog) Catalog {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return catalogs[idx]
}
