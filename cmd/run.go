package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mdvalidate/mdbook-validator/config"
	"github.com/mdvalidate/mdbook-validator/dispatch"
	"github.com/mdvalidate/mdbook-validator/eventlog"
	"github.com/mdvalidate/mdbook-validator/hostrun"
	"github.com/mdvalidate/mdbook-validator/markparse"
	"github.com/mdvalidate/mdbook-validator/models"
	"github.com/mdvalidate/mdbook-validator/preflight"
	"github.com/mdvalidate/mdbook-validator/rewrite"
	"github.com/mdvalidate/mdbook-validator/sandbox"
	"github.com/mdvalidate/mdbook-validator/sandbox/dockersandbox"
)

// runCmd speaks mdBook's preprocessor protocol: the book JSON tree arrives
// on stdin, the mutated tree is written to stdout. The protocol's envelope
// itself (book.toml-as-JSON echo, section variants this core doesn't touch
// like PartTitle/Separator) is decoded only as far as needed to reach each
// chapter's "content" and "sub_items" fields and spliced back in place —
// the JSON analogue of rewrite's byte-span splicing, applied one level up.
var runCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run as an mdBook preprocessor (reads/writes the book JSON tree on stdin/stdout)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunPreprocessor(cmd.Context(), os.Stdin, os.Stdout)
	},
}

// supportsCmd answers mdBook's `<command> supports <renderer>` negotiation.
// spec.md §6 is explicit this always returns true: the renderer argument is
// not inspected.
var supportsCmd = &cobra.Command{
	Use:    "supports <renderer>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd, supportsCmd)
}

// RunPreprocessor reads mdBook's two-element JSON envelope
// [PreprocessorContext, Book] from in, validates every chapter's fenced
// blocks, rewrites their content, and writes the same envelope back to
// out with chapter content updated in place.
func RunPreprocessor(ctx context.Context, in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading preprocessor input: %w", err)
	}

	root, err := preprocessorRoot(data)
	if err != nil {
		return err
	}

	d, cache, err := newDispatcher(root)
	if err != nil {
		return err
	}
	defer cache.DropAll(ctx)

	outData, err := processEnvelope(ctx, d, data)
	if err != nil {
		return err
	}
	_, err = out.Write(outData)
	return err
}

// preprocessorRoot extracts the book root from the envelope's context
// element, without decoding anything else.
func preprocessorRoot(data []byte) (string, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope) != 2 {
		return "", fmt.Errorf("malformed mdbook preprocessor input: expected a 2-element JSON array")
	}
	var pctx struct {
		Root string `json:"root"`
	}
	if err := json.Unmarshal(envelope[0], &pctx); err != nil {
		return "", fmt.Errorf("parsing preprocessor context: %w", err)
	}
	return pctx.Root, nil
}

// processEnvelope validates and rewrites every chapter in the [context,
// book] envelope, returning the same envelope with chapter content
// spliced in place. Split out from RunPreprocessor so tests can supply a
// Dispatcher backed by fakes instead of a real sandbox cache.
func processEnvelope(ctx context.Context, d *dispatch.Dispatcher, data []byte) ([]byte, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope) != 2 {
		return nil, fmt.Errorf("malformed mdbook preprocessor input: expected a 2-element JSON array")
	}
	ctxRaw, bookRaw := envelope[0], envelope[1]

	var bookMap map[string]json.RawMessage
	if err := json.Unmarshal(bookRaw, &bookMap); err != nil {
		return nil, fmt.Errorf("parsing book tree: %w", err)
	}
	var sections []json.RawMessage
	if err := json.Unmarshal(bookMap["sections"], &sections); err != nil {
		return nil, fmt.Errorf("parsing book sections: %w", err)
	}

	for i, s := range sections {
		newSection, err := processSectionJSON(ctx, d, s)
		if err != nil {
			return nil, err
		}
		sections[i] = newSection
	}

	var err error
	bookMap["sections"], err = json.Marshal(sections)
	if err != nil {
		return nil, err
	}
	newBookRaw, err := json.Marshal(bookMap)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]json.RawMessage{ctxRaw, newBookRaw})
}

// newDispatcher wires config, a fresh sandbox cache, and a real host
// script runner into one Dispatcher for this build run.
func newDispatcher(bookRoot string) (*dispatch.Dispatcher, *sandbox.Cache, error) {
	preflight.Warn(eventlog.Default, preflight.CheckAll(preflight.RealChecker{}))

	cfg, err := config.Load(bookRoot)
	if err != nil {
		return nil, nil, err
	}
	if cfg.FixturesDir != "" {
		abs, err := filepath.Abs(filepath.Join(bookRoot, cfg.FixturesDir))
		if err != nil {
			return nil, nil, models.NewFixturesError("resolving fixtures dir: %s", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, nil, models.NewFixturesError("fixtures dir %s: %s", abs, err)
		}
		if !info.IsDir() {
			return nil, nil, models.NewFixturesError("fixtures dir %s is not a directory", abs)
		}
		canonical, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, nil, models.NewFixturesError("canonicalizing fixtures dir %s: %s", abs, err)
		}
		cfg.FixturesDir = canonical
	}

	starter, err := dockersandbox.NewStarter(eventlog.Default)
	if err != nil {
		return nil, nil, models.NewSandboxStartup(err, "connecting to docker: %s", err)
	}
	cache := sandbox.NewCache(starter, eventlog.Default)
	d := dispatch.New(cfg, bookRoot, cache, hostrun.Real{}, eventlog.Default)
	d.FixturesDir = cfg.FixturesDir
	return d, cache, nil
}

func processSectionJSON(ctx context.Context, d *dispatch.Dispatcher, raw json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not an object: e.g. the bare string "Separator". Passes through
		// untouched since it contains no chapter content.
		return raw, nil
	}

	chapterRaw, ok := obj["Chapter"]
	if !ok {
		// A variant this core doesn't act on (e.g. PartTitle).
		return raw, nil
	}

	var chapter map[string]json.RawMessage
	if err := json.Unmarshal(chapterRaw, &chapter); err != nil {
		return nil, fmt.Errorf("parsing chapter: %w", err)
	}
	if err := processChapterJSON(ctx, d, chapter); err != nil {
		return nil, err
	}
	newChapterRaw, err := json.Marshal(chapter)
	if err != nil {
		return nil, err
	}
	obj["Chapter"] = newChapterRaw
	return json.Marshal(obj)
}

// processChapterJSON mirrors walk.Walker.processChapter's contract
// (find blocks, check E011 chapter-wide, dispatch each in document order,
// rewrite), but operates on the chapter's raw JSON field map directly
// instead of a book.Chapter, since the JSON tree carries fields (draft
// chapters, source_path, parent_names) this core has no business touching.
func processChapterJSON(ctx context.Context, d *dispatch.Dispatcher, chapter map[string]json.RawMessage) error {
	contentRaw, ok := chapter["content"]
	if !ok {
		return nil
	}
	var name string
	if nameRaw, ok := chapter["name"]; ok {
		_ = json.Unmarshal(nameRaw, &name)
	}
	var content string
	if err := json.Unmarshal(contentRaw, &content); err != nil {
		return fmt.Errorf("chapter %q: parsing content: %w", name, err)
	}

	if content != "" {
		fences := markparse.FindFences([]byte(content))
		blocks := lo.FilterMap(fences, func(f markparse.Fence, _ int) (models.Block, bool) {
			return f.ToBlock()
		})
		for _, b := range blocks {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("chapter %q: %w", name, err)
			}
		}
		for _, b := range blocks {
			if err := d.Dispatch(ctx, name, b); err != nil {
				return fmt.Errorf("chapter %q: %w", name, err)
			}
		}
		content = rewrite.Chapter(content)
	}

	newContentRaw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	chapter["content"] = newContentRaw

	if subRaw, ok := chapter["sub_items"]; ok {
		var subItems []json.RawMessage
		if err := json.Unmarshal(subRaw, &subItems); err != nil {
			return fmt.Errorf("chapter %q: parsing sub_items: %w", name, err)
		}
		for i, s := range subItems {
			newSub, err := processSectionJSON(ctx, d, s)
			if err != nil {
				return err
			}
			subItems[i] = newSub
		}
		newSubRaw, err := json.Marshal(subItems)
		if err != nil {
			return err
		}
		chapter["sub_items"] = newSubRaw
	}

	return nil
}
