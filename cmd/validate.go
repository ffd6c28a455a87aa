package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/mdvalidate/mdbook-validator/book"
	"github.com/mdvalidate/mdbook-validator/walk"
)

var (
	validateGlob  string
	validateWrite bool
)

// validateCmd is the standalone, non-mdBook entry point: glob a directory
// for Markdown files and run the same validation/rewrite pipeline over
// them as flat, unnested chapters. Useful for a book with no SUMMARY.md,
// or for running this core against a plain docs/ tree in CI.
var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate (and optionally rewrite) Markdown files directly, without mdBook",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateGlob, "glob", "**/*.md", "doublestar glob, relative to the book root, selecting Markdown files")
	validateCmd.Flags().BoolVar(&validateWrite, "write", false, "rewrite matched files in place on success (default: dry run)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}

	matches, err := doublestar.Glob(os.DirFS(absRoot), validateGlob)
	if err != nil {
		return fmt.Errorf("globbing %s under %s: %w", validateGlob, absRoot, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no files matched %q under %s", validateGlob, absRoot)
	}

	d, cache, err := newDispatcher(absRoot)
	if err != nil {
		return err
	}
	defer cache.DropAll(cmd.Context())

	chapters := make([]*book.Chapter, 0, len(matches))
	items := make([]book.Item, 0, len(matches))
	for _, rel := range matches {
		data, err := os.ReadFile(filepath.Join(absRoot, rel))
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		ch := &book.Chapter{Name: rel, Path: rel, Content: string(data)}
		chapters = append(chapters, ch)
		items = append(items, book.Item{Chapter: ch})
	}

	// Each match is a flat, unnested chapter, so walking one at a time
	// lets a pass/fail glyph print per file as soon as it's known,
	// rather than only learning the outcome after the whole tree walks.
	w := walk.New(d)
	for i, item := range items {
		err := w.Run(cmd.Context(), []book.Item{item})
		fmt.Printf("%s %s\n", chapterGlyph(err == nil), matches[i])
		if err != nil {
			return err
		}
	}

	if !validateWrite {
		fmt.Printf("validated %d file(s); re-run with --write to rewrite in place\n", len(chapters))
		return nil
	}
	for _, ch := range chapters {
		if err := os.WriteFile(filepath.Join(absRoot, ch.Path), []byte(ch.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", ch.Path, err)
		}
	}
	fmt.Printf("validated and rewrote %d file(s)\n", len(chapters))
	return nil
}
