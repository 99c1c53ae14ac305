// Package treegrep provides structural code search built on tree-sitter.
// Rules describe code by example: a pattern is a snippet in the target
// language with meta-variables ($A, $$$ARGS) standing in for subtrees, and
// the engine reports every node the pattern unifies with, together with what
// each meta-variable captured. It works uniformly across 11 grammars: Go,
// TypeScript, TSX, JavaScript, Python, Rust, C, C++, Java, PHP, and Ruby.
//
// # Pipeline
//
// A scan runs in three phases:
//
//  1. Discover: list files under a root (git ls-files when available,
//     otherwise a filesystem walk) and keep those in a language some rule
//     targets.
//
//  2. Match: parse each file with tree-sitter on a worker pool and run every
//     rule for its language over the tree. Matching is lazy and visits each
//     node at most once per rule; subtrees of a match are not searched again.
//
//  3. Collect: gather findings in path and offset order and, when a store is
//     configured, commit each file's findings to SQLite in one transaction.
//
// # Usage
//
// Load YAML rules, create an Engine, and scan:
//
//	rules, err := treegrep.LoadRules("rules/", "")
//	if err != nil { ... }
//	e, err := treegrep.New(rules, treegrep.WithLanguages("go"))
//	if err != nil { ... }
//
//	res, err := e.ScanDirectory(ctx, "path/to/project")
//	for _, f := range res.Findings {
//		fmt.Println(f.Path, f.StartLine, f.RuleID, f.Captures["A"])
//	}
//
// # Rules
//
// A rule names a language and a condition tree built from pattern, kind,
// regex, all, any, not, has and inside nodes. An optional Risor filter
// script sees each match's captures and can reject it. See the internal/rule
// and internal/runtime packages.
package treegrep
