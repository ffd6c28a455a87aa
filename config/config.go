// Package config loads the preprocessor's configuration from a book's
// book.toml, the [preprocessor.validator] table spec.md §3 and §6 describe.
// Grounded on original_source/src/config.rs's Config::from_context, adapted
// from mdBook's in-process TOML table to a standalone book.toml read off
// disk, and on config/parser.go's read-file-then-unmarshal-then-validate
// shape for the disk-facing parts.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/mdvalidate/mdbook-validator/models"
)

const fileName = "book.toml"

type tomlFile struct {
	Preprocessor struct {
		Validator tomlValidatorSection `toml:"validator"`
	} `toml:"preprocessor"`
}

type tomlValidatorSection struct {
	Validators  map[string]tomlValidatorDef `toml:"validators"`
	FailFast    *bool                       `toml:"fail_fast"`
	FixturesDir string                      `toml:"fixtures_dir"`
}

type tomlValidatorDef struct {
	Container    string `toml:"container"`
	Script       string `toml:"script"`
	QueryCommand string `toml:"query_command"`
	Legacy       bool   `toml:"legacy"`
}

// Load reads bookRoot/book.toml and returns the [preprocessor.validator]
// table as a models.Config. A missing [preprocessor.validator] table is not
// an error: it yields a zero-value Config with fail-fast defaulted, matching
// a book that has the preprocessor registered but configures no validators
// yet (book.toml still needs the `[preprocessor.validator]` stanza present
// for mdBook to invoke the preprocessor at all, but this loader only cares
// about the data under it).
func Load(bookRoot string) (*models.Config, error) {
	path := filepath.Join(bookRoot, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file tomlFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, models.NewConfiguration("parsing %s: %s", path, err)
	}

	section := file.Preprocessor.Validator

	cfg := &models.Config{
		Validators:  make(map[string]models.ValidatorDefinition, len(section.Validators)),
		FailFast:    section.FailFast == nil || *section.FailFast,
		FixturesDir: section.FixturesDir,
	}
	for name, def := range section.Validators {
		cfg.Validators[name] = models.ValidatorDefinition{
			Container:    def.Container,
			Script:       def.Script,
			QueryCommand: def.QueryCommand,
			Legacy:       def.Legacy,
		}
	}
	return cfg, nil
}
