package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/treegrep"
	"github.com/jward/treegrep/internal/store"
)

var (
	flagRunID    string
	flagRuleID   string
	flagPath     string
	flagSeverity string
	flagCounts   bool
	flagDelete   string
)

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Show findings recorded by a scan",
	Long:  "Reads findings from the database. Defaults to the most recent run.",
	Args:  cobra.NoArgs,
	RunE:  runFindings,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded scan runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	findingsCmd.Flags().StringVar(&flagRunID, "run", "", "run id (default: latest)")
	findingsCmd.Flags().StringVar(&flagRuleID, "rule", "", "only findings of this rule")
	findingsCmd.Flags().StringVar(&flagPath, "path", "", "only findings in this file")
	findingsCmd.Flags().StringVar(&flagSeverity, "severity", "", "only findings of this severity")
	findingsCmd.Flags().BoolVar(&flagCounts, "counts", false, "print per-rule counts instead of findings")

	runsCmd.Flags().StringVar(&flagDelete, "delete", "", "delete the run with this id")
}

// openExistingStore opens the findings database without creating it.
func openExistingStore() (*store.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(findRepoRoot(wd))
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no findings database at %s (run 'treegrep scan' first)", dbPath)
	}
	return openStore(dbPath)
}

func runFindings(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	s, err := openExistingStore()
	if err != nil {
		return outputError(w, "findings", err)
	}
	defer s.Close()

	run, err := selectRun(s, flagRunID)
	if err != nil {
		return outputError(w, "findings", err)
	}

	if flagCounts {
		counts, err := s.CountsByRule(run.ID)
		if err != nil {
			return outputError(w, "findings", err)
		}
		out := make([]CLIRuleCount, 0, len(counts))
		for _, c := range counts {
			out = append(out, CLIRuleCount{RuleID: c.RuleID, Count: c.Count})
		}
		return outputResult(w, CLIResult{Command: "findings", RunID: run.ID, Results: out})
	}

	matches, err := s.MatchesByRun(run.ID, store.MatchFilter{
		RuleID:   flagRuleID,
		Path:     flagPath,
		Severity: flagSeverity,
	})
	if err != nil {
		return outputError(w, "findings", err)
	}
	out := make([]treegrep.Finding, 0, len(matches))
	for _, m := range matches {
		out = append(out, treegrep.FindingFromStore(m))
	}
	total := len(out)
	return outputResult(w, CLIResult{Command: "findings", RunID: run.ID, Results: out, TotalCount: &total})
}

// selectRun returns the run with id, or the latest run when id is empty.
func selectRun(s *store.Store, id string) (*store.Run, error) {
	var (
		run *store.Run
		err error
	)
	if id == "" {
		run, err = s.LatestRun()
	} else {
		run, err = s.RunByID(id)
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		if id == "" {
			return nil, errors.New("no runs recorded")
		}
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	s, err := openExistingStore()
	if err != nil {
		return outputError(w, "runs", err)
	}
	defer s.Close()

	if flagDelete != "" {
		if _, err := selectRun(s, flagDelete); err != nil {
			return outputError(w, "runs", err)
		}
		if err := s.DeleteRun(flagDelete); err != nil {
			return outputError(w, "runs", err)
		}
	}

	runs, err := s.Runs()
	if err != nil {
		return outputError(w, "runs", err)
	}
	return outputResult(w, CLIResult{Command: "runs", Results: toCLIRuns(runs)})
}

func toCLIRuns(runs []*store.Run) []CLIRun {
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		c := CLIRun{
			ID:         r.ID,
			Root:       r.Root,
			StartedAt:  r.StartedAt.Format(time.RFC3339),
			FileCount:  r.FileCount,
			MatchCount: r.MatchCount,
			ErrorCount: r.ErrorCount,
		}
		if !r.FinishedAt.IsZero() {
			c.FinishedAt = r.FinishedAt.Format(time.RFC3339)
		}
		out = append(out, c)
	}
	return out
}
