package treegrep

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/rule"
	"github.com/jward/treegrep/internal/store"
	"github.com/jward/treegrep/internal/syntax"
)

// benchGoSource is a mid-sized Go file with comparisons, calls and branches
// for exercising pattern, kind and combinator rules.
var benchGoSource = "package bench\n\nimport \"fmt\"\n\n" + strings.Repeat(`
func handle(req *Request, n int) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	if n == n {
		fmt.Println("always")
	}
	for i := 0; i < n; i++ {
		req.Add(i, n, "item")
	}
	return req.Close()
}
`, 40)

const benchRules = `id: self-compare
language: go
rule:
  pattern: $A == $A
---
id: errorf
language: go
rule:
  pattern: fmt.Errorf($$$ARGS)
---
id: print-in-if
language: go
rule:
  all:
    - kind: call_expression
    - regex: 'fmt\.Println\(.*\)'
    - inside: { kind: if_statement }
`

func benchRoot(b *testing.B) *syntax.Root {
	b.Helper()
	lang, _ := syntax.Lookup("go")
	root, err := lang.ParseString(context.Background(), benchGoSource)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(root.Close)
	return root
}

// BenchmarkNewPattern measures pattern compilation, which parses the snippet.
func BenchmarkNewPattern(b *testing.B) {
	lang, _ := syntax.Lookup("go")
	for b.Loop() {
		if _, err := match.NewPattern("req.Add($A, $$$REST)", lang); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFindAll_Pattern measures a full-tree search with kind pruning.
func BenchmarkFindAll_Pattern(b *testing.B) {
	root := benchRoot(b)
	lang, _ := syntax.Lookup("go")
	p := match.MustPattern("req.Add($A, $$$REST)", lang)

	for b.Loop() {
		if n := len(match.FindAll(p, root.Node()).Collect()); n != 40 {
			b.Fatalf("got %d matches", n)
		}
	}
}

// BenchmarkFindAll_Regex measures a search with no kind hint, which offers
// every node to the matcher.
func BenchmarkFindAll_Regex(b *testing.B) {
	root := benchRoot(b)
	re, err := match.NewRegexMatcher(`"always"`)
	if err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		match.FindAll(re, root.Node()).Collect()
	}
}

// BenchmarkScanFiles measures an end-to-end scan of several files with the
// findings persisted to SQLite.
func BenchmarkScanFiles(b *testing.B) {
	dir := b.TempDir()
	var paths []string
	for _, name := range []string{"a.go", "b.go", "c.go", "d.go"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(benchGoSource), 0o644); err != nil {
			b.Fatal(err)
		}
		paths = append(paths, path)
	}

	rules, err := rule.Parse([]byte(benchRules), "bench.yml", nil)
	if err != nil {
		b.Fatal(err)
	}
	s, err := store.NewStore(filepath.Join(dir, "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		b.Fatal(err)
	}

	e, err := New(rules, WithStore(s))
	if err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	for b.Loop() {
		if _, err := e.ScanFiles(ctx, paths); err != nil {
			b.Fatal(err)
		}
	}
}
