package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var (
	force       bool
	interactive bool
	initName    string
	initImage   string
	initScript  string
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Scaffold a [preprocessor.validator] section and starter script",
	Long: `Initialize a book directory with everything mdbook-validator needs:
a [preprocessor.validator] table appended to book.toml, and a starter
host validator script that accepts the sandbox's stdout on stdin and
exits zero or one.

Examples:
  # Interactive setup in the current directory
  mdbook-validator init

  # Non-interactive, scripted setup
  mdbook-validator init ./book --name sqlite --image sqlite:3 --script scripts/sqlite-validate.sh --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing validator entry or script")
	initCmd.Flags().BoolVarP(&interactive, "interactive", "i", true, "prompt for validator name/image/script")
	initCmd.Flags().StringVar(&initName, "name", "", "validator name (non-interactive mode)")
	initCmd.Flags().StringVar(&initImage, "image", "", "docker image (non-interactive mode)")
	initCmd.Flags().StringVar(&initScript, "script", "", "host validator script path, relative to the book root (non-interactive mode)")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var answers InitAnswers
	var err error
	if interactive && initName == "" {
		answers, err = RunInteractiveInit()
		if err != nil {
			return fmt.Errorf("interactive setup failed: %w", err)
		}
	} else {
		if initName == "" || initImage == "" || initScript == "" {
			return fmt.Errorf("non-interactive init requires --name, --image, and --script (or omit them to run interactively)")
		}
		answers = InitAnswers{Name: initName, Image: initImage, Script: initScript}
	}

	if err := writeStarterScript(targetDir, answers.Script, force); err != nil {
		return err
	}
	if err := appendValidatorToBookToml(targetDir, answers, force); err != nil {
		return err
	}

	fmt.Printf("added validator %q (%s) to book.toml\n", answers.Name, answers.Image)
	fmt.Printf("wrote starter script %s\n", filepath.Join(targetDir, answers.Script))
	fmt.Println("next: add a fenced code block with `validator=" + answers.Name + "` to a chapter")
	return nil
}

// appendValidatorToBookToml reads targetDir/book.toml (creating a minimal
// one if absent), merges in one validator definition, and writes it back.
// Grounded on config.Load's table shape; round-trips through the same
// go-toml/v2 package that parses it at build time.
func appendValidatorToBookToml(targetDir string, answers InitAnswers, force bool) error {
	path := filepath.Join(targetDir, "book.toml")

	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing existing %s: %w", path, err)
		}
	}

	preprocessor, _ := doc["preprocessor"].(map[string]any)
	if preprocessor == nil {
		preprocessor = map[string]any{}
	}
	validatorSection, _ := preprocessor["validator"].(map[string]any)
	if validatorSection == nil {
		validatorSection = map[string]any{}
	}
	validators, _ := validatorSection["validators"].(map[string]any)
	if validators == nil {
		validators = map[string]any{}
	}

	if _, exists := validators[answers.Name]; exists && !force {
		return fmt.Errorf("validator %q already defined in book.toml; use --force to overwrite", answers.Name)
	}

	validators[answers.Name] = map[string]any{
		"container": answers.Image,
		"script":    answers.Script,
	}
	validatorSection["validators"] = validators
	preprocessor["validator"] = validatorSection
	doc["preprocessor"] = preprocessor

	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return os.WriteFile(path, out, 0o644)
}

func writeStarterScript(targetDir, scriptPath string, force bool) error {
	fullPath := filepath.Join(targetDir, scriptPath)
	if _, err := os.Stat(fullPath); err == nil && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", fullPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(starterScript), 0o755); err != nil {
		return fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	return nil
}

const starterScript = `#!/bin/sh
# Receives the sandbox query's stdout on stdin.
# VALIDATOR_ASSERTIONS, VALIDATOR_EXPECT, VALIDATOR_FIXTURES_DIR,
# VALIDATOR_CONTAINER_STDERR are set only when non-empty (from the block,
# book.toml, or the query's stderr). "mdbook-validator assert-eval" evaluates the assertion grammar
# against stdin using those same env vars; exit 0 to pass, non-zero to
# fail. Replace this with your own logic, or add checks after it runs.
set -eu
mdbook-validator assert-eval
`
