package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/treegrep/internal/syntax"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds <language>",
	Short: "List the named node kinds of a language",
	Long:  "Lists the tree-sitter node kinds usable in kind: rules. Run without arguments to list the supported languages.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKinds,
}

func runKinds(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if len(args) == 0 {
		return outputResult(w, CLIResult{Command: "kinds", Results: CLIKinds{Kinds: syntax.Names()}})
	}
	lang, ok := syntax.Lookup(args[0])
	if !ok {
		return outputError(w, "kinds", fmt.Errorf("unknown language %q (supported: %s)", args[0], strings.Join(syntax.Names(), ", ")))
	}
	return outputResult(w, CLIResult{
		Command: "kinds",
		Results: CLIKinds{Language: lang.Name(), Kinds: lang.Kinds()},
	})
}
