package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/treegrep"
	"github.com/jward/treegrep/internal/rule"
	"github.com/jward/treegrep/internal/syntax"
)

var (
	flagPattern  string
	flagKind     string
	flagRegex    string
	flagLang     string
	flagFilter   string
	flagParallel bool
)

var runCmd = &cobra.Command{
	Use:   "run [path...]",
	Short: "Search for one pattern, kind or regex",
	Long: `Searches files or directories for a single ad hoc condition. Several of
--pattern, --kind and --regex may be given; a node must satisfy all of them.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&flagPattern, "pattern", "p", "", "code pattern with $META variables")
	runCmd.Flags().StringVar(&flagKind, "kind", "", "tree-sitter node kind")
	runCmd.Flags().StringVar(&flagRegex, "regex", "", "regular expression over the whole node text")
	runCmd.Flags().StringVarP(&flagLang, "lang", "l", "", "language (inferred from a single file argument when omitted)")
	runCmd.Flags().StringVar(&flagFilter, "filter", "", "Risor predicate over captures")
	runCmd.Flags().BoolVar(&flagParallel, "parallel", true, "scan files on a worker pool")
}

// buildCLIRule compiles the ad hoc rule described by the run flags.
func buildCLIRule(pattern, kind, regex, lang, filter string, paths []string) (*rule.Compiled, error) {
	if pattern == "" && kind == "" && regex == "" {
		return nil, errors.New("one of --pattern, --kind or --regex is required")
	}
	if lang == "" {
		if len(paths) == 1 {
			if name, ok := syntax.LanguageForFile(paths[0]); ok {
				lang = name
			}
		}
		if lang == "" {
			return nil, errors.New("--lang is required unless a single source file is given")
		}
	}
	r := &rule.Rule{
		ID:       "run",
		Language: lang,
		Message:  "match",
		Rule:     rule.Node{Pattern: pattern, Kind: kind, Regex: regex},
		Filter:   filter,
	}
	return r.Compile(newRuntime(""))
}

func runRun(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if len(args) == 0 {
		args = []string{"."}
	}

	r, err := buildCLIRule(flagPattern, flagKind, flagRegex, flagLang, flagFilter, args)
	if err != nil {
		return outputError(w, "run", err)
	}
	engine, err := treegrep.New([]*treegrep.Rule{r}, treegrep.WithParallel(flagParallel))
	if err != nil {
		return outputError(w, "run", err)
	}

	all, errs, err := scanTargets(cmd.Context(), engine, args)
	if err != nil {
		return outputError(w, "run", err)
	}
	total := len(all)
	return outputResult(w, CLIResult{
		Command:    "run",
		Results:    all,
		TotalCount: &total,
		Errors:     errs,
	})
}

// scanTargets scans every argument, files and directories alike, and merges
// the findings. Per-file errors are returned as messages; only a failure to
// scan at all is an error.
func scanTargets(ctx context.Context, engine *treegrep.Engine, args []string) ([]treegrep.Finding, []string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		all   []treegrep.Finding
		files []string
		msgs  []string
	)
	collect := func(res *treegrep.Result) {
		if res == nil {
			return
		}
		all = append(all, res.Findings...)
		for _, e := range res.Errors {
			msgs = append(msgs, e.Error())
		}
	}

	for _, arg := range args {
		target, err := resolveTarget(arg)
		if err != nil {
			return nil, nil, err
		}
		info, err := os.Stat(target)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}
		res, err := engine.ScanDirectory(ctx, target)
		if res == nil && err != nil {
			return nil, nil, fmt.Errorf("scanning %s: %w", target, err)
		}
		collect(res)
	}
	if len(files) > 0 {
		res, err := engine.ScanFiles(ctx, files)
		if res == nil && err != nil {
			return nil, nil, fmt.Errorf("scanning files: %w", err)
		}
		collect(res)
	}
	return all, msgs, nil
}
