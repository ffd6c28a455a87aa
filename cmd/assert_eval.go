package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdvalidate/mdbook-validator/assertgrammar"
	"github.com/mdvalidate/mdbook-validator/hostvalidate"
)

// assertEvalCmd is a small convenience entry point for host validator
// scripts: rather than every book author re-implementing the assertion
// grammar in shell/jq, a starter script (see init.go) can pipe the
// sandbox's stdout through this command, which reads the same
// VALIDATOR_ASSERTIONS/VALIDATOR_EXPECT/VALIDATOR_FIXTURES_DIR env vars
// hostvalidate.Run already exports and evaluates them with assertgrammar.
var assertEvalCmd = &cobra.Command{
	Use:          "assert-eval",
	Short:        "Evaluate VALIDATOR_ASSERTIONS/VALIDATOR_EXPECT against stdin from a host validator script",
	Hidden:       true,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssertEval(os.Stdin, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(assertEvalCmd)
}

func runAssertEval(in io.Reader, errOut io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	stdout := string(data)

	out := assertgrammar.Output{
		Stdout:       stdout,
		ExitCode:     0, // the host script only ever runs after the sandbox query itself exited 0
		FixturesRoot: os.Getenv(hostvalidate.EnvFixturesDir),
	}

	if assertions := os.Getenv(hostvalidate.EnvAssertions); assertions != "" {
		if err := assertgrammar.Evaluate(assertions, out); err != nil {
			fmt.Fprintln(errOut, err)
			return err
		}
	}

	if expect := os.Getenv(hostvalidate.EnvExpect); expect != "" {
		if strings.TrimRight(stdout, "\n") != expect {
			fmt.Fprintln(errOut, "expected:")
			fmt.Fprintln(errOut, expect)
			fmt.Fprintln(errOut, "got:")
			fmt.Fprintln(errOut, stdout)
			return fmt.Errorf("output did not match VALIDATOR_EXPECT")
		}
	}

	return nil
}
