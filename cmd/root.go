package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/clicky"
	"github.com/flanksource/commons/logger"
	"github.com/google/gops/agent"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	bookRoot    string
	showVersion bool
	useGops     bool
	gopsStarted bool
)

// VersionInfo represents version information with pretty formatting
type VersionInfo struct {
	Program string `json:"program" pretty:"label=Program,style=text-blue-600 font-bold"`
	Version string `json:"version" pretty:"label=Version,color=green"`
	Commit  string `json:"commit" pretty:"label=Commit,style=text-gray-600"`
	Built   string `json:"built" pretty:"label=Built,style=text-gray-600"`
	Status  string `json:"status" pretty:"label=Status,color=green=clean,yellow=dirty"`
}

var rootCmd = &cobra.Command{
	Use:   "mdbook-validator",
	Short: "Validates and rewrites fenced code blocks in mdBook chapters",
	Long: `mdbook-validator is an mdBook preprocessor that validates fenced code
blocks tagged with "validator=<name>" against a per-validator sandbox
container, then rewrites the chapter to strip the SETUP/ASSERT/EXPECT
markers it used to do so.

Run it with no subcommand as an mdBook preprocessor (reads the book JSON
tree on stdin), or use the "validate" subcommand to walk a directory of
Markdown files directly without mdBook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion()
			return nil
		}
		return RunPreprocessor(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func printVersion() {
	vInfo := VersionInfo{Program: "mdbook-validator"}

	if getVersionInfo != nil {
		version, commit, date, isDirty := getVersionInfo()
		status := "clean"
		if isDirty {
			status = "dirty"
		}
		vInfo.Version = version
		vInfo.Commit = commit
		vInfo.Built = date
		vInfo.Status = status
	} else {
		vInfo.Version, vInfo.Commit, vInfo.Built, vInfo.Status = "dev", "unknown", "unknown", "unknown"
	}

	output, err := clicky.Format(vInfo)
	if err != nil {
		fmt.Printf("mdbook-validator version %s (commit: %s, built: %s, %s)\n",
			vInfo.Version, vInfo.Commit, vInfo.Built, vInfo.Status)
		return
	}
	fmt.Print(output)
}

func Execute() {
	err := rootCmd.Execute()
	if gopsStarted {
		agent.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, renderDiagnostic(err))
		os.Exit(1)
	}

	exitCode := clicky.WaitForGlobalCompletion()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mdbook-validator.yaml)")
	rootCmd.PersistentFlags().StringVar(&bookRoot, "book-root", "", "book root directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&useGops, "gops", false, "start a gops agent for runtime diagnostics")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "Show version information")

	clicky.BindAllFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mdbook-validator")
	}

	viper.SetEnvPrefix("MDBOOK_VALIDATOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Infof("Using config file: %s", viper.ConfigFileUsed())
	}

	clicky.Flags.UseFlags()

	if useGops {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			logger.Warnf("failed to start gops agent: %v", err)
		} else {
			gopsStarted = true
		}
	}
}

// GetBookRoot returns the book root directory to use, respecting the
// --book-root flag or defaulting to the current directory.
func GetBookRoot() (string, error) {
	if bookRoot == "" {
		return os.Getwd()
	}
	absPath, err := filepath.Abs(bookRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve book root: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("book root does not exist: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("book root is not a directory: %s", absPath)
	}
	return absPath, nil
}
