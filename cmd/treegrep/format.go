package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/treegrep"
)

// formatFindingsText writes one "path:line:col: severity rule: message"
// header per finding followed by the matched text and captures.
func formatFindingsText(w io.Writer, fs []treegrep.Finding) {
	for _, f := range fs {
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", f.Path, f.StartLine, f.StartCol, f.Severity, f.RuleID, f.Message)
		for _, line := range strings.Split(f.Text[:min(f.MatchLen, len(f.Text))], "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		for _, name := range sortedKeys(f.Captures) {
			fmt.Fprintf(w, "    $%s = %s\n", name, f.Captures[name])
		}
		for _, name := range sortedKeys(f.MultiCaptures) {
			fmt.Fprintf(w, "    $$$%s = [%s]\n", name, strings.Join(f.MultiCaptures[name], ", "))
		}
	}
}

// formatRunsText formats runs as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tFILES\tMATCHES\tERRORS\tROOT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt, r.FileCount, r.MatchCount, r.ErrorCount, r.Root)
	}
	tw.Flush()
}

// formatRuleCountsText formats per-rule counts as aligned columns.
func formatRuleCountsText(w io.Writer, counts []CLIRuleCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tCOUNT")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.RuleID, c.Count)
	}
	tw.Flush()
}

// formatKindsText writes one kind per line.
func formatKindsText(w io.Writer, k CLIKinds) {
	for _, kind := range k.Kinds {
		fmt.Fprintln(w, kind)
	}
}

// outputResult writes a CLIResult to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []treegrep.Finding:
		formatFindingsText(w, v)
	case []CLIRun:
		formatRunsText(w, v)
	case []CLIRuleCount:
		formatRuleCountsText(w, v)
	case CLIKinds:
		formatKindsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
	if result.TotalCount != nil {
		count := *result.TotalCount
		if shown := resultLen(result.Results); shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to w as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(w io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []treegrep.Finding:
		return len(r)
	case []CLIRun:
		return len(r)
	case []CLIRuleCount:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
