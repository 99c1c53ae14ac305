package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/treegrep/internal/log"
	"github.com/jward/treegrep/internal/runtime"
	"github.com/jward/treegrep/scripts"
)

var (
	flagDB        string
	flagFormat    string
	flagVerbosity int
	flagLogFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "treegrep",
	Short:         "Structural code search with tree-sitter patterns",
	Long:          "treegrep matches code by example: patterns are snippets in the target language with $META variables, compiled against tree-sitter grammars.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		log.Init(flagVerbosity, flagLogFormat)
		return nil
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "findings database path (default: .treegrep/findings.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().IntVarP(&flagVerbosity, "verbosity", "v", log.VerbosityWarn, "log verbosity (0 error .. 4 trace)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text|json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(findingsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(kindsCmd)
}

// newRuntime returns the filter runtime: scripts from dir when set,
// otherwise the embedded modules.
func newRuntime(dir string) *runtime.Runtime {
	if dir != "" {
		return runtime.NewRuntime(dir)
	}
	return runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS))
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveTarget returns the absolute path of a scan target.
func resolveTarget(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", arg, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("path not found: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".treegrep", "findings.db")
}
