// Package walk implements the book walker of spec.md §4.I: a depth-first
// pre-order traversal that runs the dispatcher over every validator
// block in a chapter, in document order, then runs the rewriter, then
// recurses into sub-chapters. Non-chapter book items pass through
// untouched. There is no concurrency across chapters (spec.md §5).
package walk

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/mdvalidate/mdbook-validator/book"
	"github.com/mdvalidate/mdbook-validator/markparse"
	"github.com/mdvalidate/mdbook-validator/models"
	"github.com/mdvalidate/mdbook-validator/rewrite"
)

// Dispatcher is the subset of dispatch.Dispatcher the walker depends on,
// named as an interface so tests can substitute a scripted double
// without constructing a real sandbox cache.
type Dispatcher interface {
	Dispatch(ctx context.Context, chapterName string, b models.Block) error
}

// Walker drives one build run: for every chapter, dispatch every
// validator block then rewrite the chapter body.
type Walker struct {
	Dispatcher Dispatcher
}

func New(d Dispatcher) *Walker {
	return &Walker{Dispatcher: d}
}

// Run walks items depth-first pre-order, mutating each chapter's Content
// in place. It stops at the first fatal error — the "always
// fail-at-first" behavior spec.md §4.G/§9 documents regardless of the
// configuration's fail-fast flag.
func (w *Walker) Run(ctx context.Context, items []book.Item) error {
	return book.Walk(items, func(ch *book.Chapter) error {
		return w.processChapter(ctx, ch)
	})
}

func (w *Walker) processChapter(ctx context.Context, ch *book.Chapter) error {
	if ch.Content == "" {
		return nil
	}

	fences := markparse.FindFences([]byte(ch.Content))
	blocks := lo.FilterMap(fences, func(f markparse.Fence, _ int) (models.Block, bool) {
		return f.ToBlock()
	})
	if len(blocks) == 0 {
		return nil
	}

	// E011 is checked across the whole chapter before any block's
	// sandbox work starts, matching original_source/src/preprocessor.rs's
	// process_chapter_with_config ordering.
	for _, b := range blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("chapter %q: %w", ch.Name, err)
		}
	}

	for _, b := range blocks {
		if err := w.Dispatcher.Dispatch(ctx, ch.Name, b); err != nil {
			return fmt.Errorf("chapter %q: %w", ch.Name, err)
		}
	}

	ch.Content = rewrite.Chapter(ch.Content)
	return nil
}
