package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/treegrep"
	"github.com/jward/treegrep/internal/rule"
	"github.com/jward/treegrep/internal/store"
)

var (
	flagRules      string
	flagLanguages  string
	flagScriptsDir string
	flagNoStore    bool
	flagWorkers    int
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory with YAML rules",
	Long:  "Loads rule documents, scans every matching file under path, prints the findings and records them as a run in the findings database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&flagRules, "rules", "r", "rules", "rule file or directory of .yml/.yaml files")
	scanCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. go,typescript)")
	scanCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load filter scripts from disk path instead of embedded")
	scanCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "do not record the run in the findings database")
	scanCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size (default: one per CPU)")
}

func runScan(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	start := time.Now()

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	target, err := resolveTarget(dir)
	if err != nil {
		return outputError(w, "scan", err)
	}

	rules, err := rule.LoadPath(flagRules, newRuntime(flagScriptsDir))
	if err != nil {
		return outputError(w, "scan", err)
	}

	opts := []treegrep.Option{treegrep.WithWorkers(flagWorkers)}
	if langs := splitList(flagLanguages); len(langs) > 0 {
		opts = append(opts, treegrep.WithLanguages(langs...))
	}

	var s *store.Store
	if !flagNoStore {
		dbPath := resolveDBPath(findRepoRoot(target))
		s, err = openStore(dbPath)
		if err != nil {
			return outputError(w, "scan", err)
		}
		defer s.Close()
		opts = append(opts, treegrep.WithStore(s))
	}

	engine, err := treegrep.New(rules, opts...)
	if err != nil {
		return outputError(w, "scan", err)
	}

	res, err := engine.ScanDirectory(cmd.Context(), target)
	if res == nil {
		return outputError(w, "scan", fmt.Errorf("scanning: %w", err))
	}

	fmt.Fprintf(os.Stderr, "Scanned %d file(s) (%d unchanged) under %s with %d rule(s) in %s: %d finding(s)\n",
		res.Files, res.Unchanged, target, len(rules), time.Since(start).Round(time.Millisecond), len(res.Findings))

	result := CLIResult{Command: "scan", Results: res.Findings}
	if res.Run != nil {
		result.RunID = res.Run.ID
	}
	total := len(res.Findings)
	result.TotalCount = &total
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, e.Error())
	}
	return outputResult(w, result)
}

// openStore opens and migrates the findings database, creating its
// directory when needed.
func openStore(dbPath string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
