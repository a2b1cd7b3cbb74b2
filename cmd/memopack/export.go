package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/listenupapp/memopack/internal/domain"
	"github.com/listenupapp/memopack/internal/errors"
	"github.com/listenupapp/memopack/internal/export"
	"github.com/listenupapp/memopack/internal/locale"
	"github.com/listenupapp/memopack/internal/validation"
)

// outputOptions are shared by the export commands.
type outputOptions struct {
	Output string `json:"output" validate:"required,dir"`
}

// notesOptions hold the flags of the notes command.
type notesOptions struct {
	outputOptions
	Notes     []string `json:"note"`
	NoteFiles []string `json:"note-file" validate:"dive,file"`
	Images    []string `json:"images"`
}

func newNotesCmd(global *globalOptions) *cobra.Command {
	opts := &notesOptions{}

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Build an archive with one memo per note",
		Long: `Build an archive with one memo per note.

Notes are numbered from 1 in the order given: every --note first, then every
--note-file. Attach images to a note with --images N=a.png,b.png. Notes with
no text and no images are skipped.`,
		Example: `  memopack notes --note "groceries" --note "trip" --images 2=beach.jpg,hotel.jpg -o out/`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate(opts); err != nil {
				return err
			}

			drafts, err := buildDrafts(opts)
			if err != nil {
				return err
			}

			return runExport(cmd, global, opts.Output, export.Request{
				Mode:   export.ModeNotes,
				Drafts: drafts,
				Prefix: export.PrefixCLINotes,
			})
		},
	}

	cmd.Flags().StringArrayVar(&opts.Notes, "note", nil, "Note text (repeatable)")
	cmd.Flags().StringArrayVar(&opts.NoteFiles, "note-file", nil, "Read a note's text from a file (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Images, "images", nil, "Attach images to note N: N=a.png,b.png (repeatable)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", ".", "Directory the archive is written to")

	return cmd
}

func newBulkCmd(global *globalOptions) *cobra.Command {
	opts := &outputOptions{}

	cmd := &cobra.Command{
		Use:     "bulk IMAGE...",
		Short:   "Build an archive with one empty memo per image",
		Example: `  memopack bulk photos/*.jpg -o out/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate(opts); err != nil {
				return err
			}

			return runExport(cmd, global, opts.Output, export.Request{
				Mode:   export.ModeBulk,
				Images: diskFiles(args),
				Prefix: export.PrefixCLIBulk,
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", ".", "Directory the archive is written to")

	return cmd
}

// buildDrafts turns the notes flags into drafts, in order.
func buildDrafts(opts *notesOptions) ([]domain.Draft, error) {
	var drafts []domain.Draft
	for _, text := range opts.Notes {
		drafts = append(drafts, domain.Draft{ID: strconv.Itoa(len(drafts) + 1), Text: text})
	}
	for _, path := range opts.NoteFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read note file: %w", err)
		}
		drafts = append(drafts, domain.Draft{ID: strconv.Itoa(len(drafts) + 1), Text: string(data)})
	}

	// Each --images flag can add at most one note beyond the given ones.
	maxNote := len(drafts) + len(opts.Images)
	for _, value := range opts.Images {
		n, paths, err := parseImagesFlag(value)
		if err != nil {
			return nil, err
		}
		if n > maxNote {
			return nil, errors.Validation(fmt.Sprintf("--images %q: note number must be at most %d", value, maxNote))
		}
		// Images may name a note that has no text.
		for len(drafts) < n {
			drafts = append(drafts, domain.Draft{ID: strconv.Itoa(len(drafts) + 1)})
		}
		drafts[n-1].Files = append(drafts[n-1].Files, diskFiles(paths)...)
	}

	return drafts, nil
}

// parseImagesFlag parses "N=a.png,b.png".
func parseImagesFlag(value string) (int, []string, error) {
	index, list, ok := strings.Cut(value, "=")
	if !ok {
		return 0, nil, errors.Validation(fmt.Sprintf("--images %q: expected N=file[,file...]", value))
	}

	n, err := strconv.Atoi(strings.TrimSpace(index))
	if err != nil || n < 1 {
		return 0, nil, errors.Validation(fmt.Sprintf("--images %q: note number must be 1 or more", value))
	}

	var paths []string
	for p := range strings.SplitSeq(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return 0, nil, errors.Validation(fmt.Sprintf("--images %q: no files listed", value))
	}
	return n, paths, nil
}

// runExport assembles req and writes the archive into dir.
func runExport(cmd *cobra.Command, global *globalOptions, dir string, req export.Request) error {
	catalog, err := locale.Lookup(global.Locale)
	if err != nil {
		return err
	}
	req.Catalog = catalog

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := export.New(global.log.Logger).Assemble(ctx, req)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, res.Filename)
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, path)
	fmt.Fprintf(out, "%s (%d memos, %d images, sha256 %s)\n", res.Notice, res.Memos, res.Images, res.Checksum)
	return nil
}

func validate(v any) error {
	return validation.New().Validate(v)
}
