package runtime

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/syntax"
)

const goTestSource = `package main

func check() {
	a := x == x
	b := err == err
	g(x, y)
	g(1)
}

func other() {
	h(1)
}
`

func parseGo(t *testing.T, src string) (syntax.Node, *syntax.Language) {
	t.Helper()
	lang, ok := syntax.Lookup("go")
	require.True(t, ok)
	root, err := lang.ParseString(context.Background(), src)
	require.NoError(t, err)
	t.Cleanup(root.Close)
	return root.Node(), lang
}

func findTexts(m match.Matcher, root syntax.Node) []string {
	var out []string
	for nm := range match.FindAll(m, root).Seq() {
		out = append(out, nm.Text())
	}
	return out
}

func TestFilterOnCaptures(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)

	f, err := NewRuntime("").NewFilter(match.MustPattern("$A == $A", lang), `captures["A"] != "err"`, "<inline>")
	require.NoError(t, err)
	assert.Equal(t, []string{"x == x"}, findTexts(f, root))
}

func TestFilterGlobals(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)
	rt := NewRuntime("")
	calls := match.MustPattern("g($$$ARGS)", lang)

	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"text", `text == "g(1)"`, []string{"g(1)"}},
		{"kind", `kind == "call_expression"`, []string{"g(x, y)", "g(1)"}},
		{"line", `line == 7`, []string{"g(1)"}},
		{"multi captures", `len(multi_captures["ARGS"]) == 2`, []string{"g(x, y)"}},
		{"query", `len(query("(identifier) @id")) == 3`, []string{"g(x, y)"}},
		{"query text", `len(query("(int_literal) @n")) == 1 && query("(int_literal) @n")[0]["n"] == "1"`, []string{"g(1)"}},
		{"has", `has("y")`, []string{"g(x, y)"}},
		{"falsy result", `0`, nil},
	}
	for _, tt := range tests {
		// Subtests share one tree, so they run sequentially.
		t.Run(tt.name, func(t *testing.T) {
			f, err := rt.NewFilter(calls, tt.script, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, findTexts(f, root))
		})
	}
}

func TestFilterCaptureFn(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)

	f, err := NewRuntime("").NewFilter(match.MustPattern("$A == $B", lang), `capture("A") == "x" && capture("Z") == nil`, "<inline>")
	require.NoError(t, err)
	assert.Equal(t, []string{"x == x"}, findTexts(f, root))
}

func TestFilterRejectsOnScriptError(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)

	f, err := NewRuntime("").NewFilter(match.MustPattern("$A == $B", lang), `captures["A"] + 1 > 1`, "<inline>")
	require.NoError(t, err)
	assert.Empty(t, findTexts(f, root), "string + int fails at run time")
}

func TestNewFilterUndefinedName(t *testing.T) {
	t.Parallel()
	_, lang := parseGo(t, goTestSource)

	f, err := NewRuntime("").NewFilter(match.MustPattern("$A == $B", lang), `undefined_global > 1`, "<inline>")
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "undefined_global")
}

func TestGlobalNamesMatchGlobals(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)

	m, ok := match.FindNode(match.MustPattern("$A == $B", lang), root)
	require.True(t, ok)
	var got []string
	for name := range buildGlobals(m) {
		got = append(got, name)
	}
	assert.ElementsMatch(t, globalNames, got)
}

func TestFilterCompiledOnceRunsConcurrently(t *testing.T) {
	t.Parallel()
	lang, ok := syntax.Lookup("go")
	require.True(t, ok)

	f, err := NewRuntime("").NewFilter(match.MustPattern("$A == $B", lang), `captures["A"] == captures["B"]`, "<inline>")
	require.NoError(t, err)

	// Each goroutine parses its own tree; only the filter is shared.
	var wg sync.WaitGroup
	results := make([][]string, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			root, err := lang.ParseString(context.Background(), goTestSource)
			if err != nil {
				return
			}
			defer root.Close()
			results[i] = findTexts(f, root.Node())
		}()
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, []string{"x == x", "err == err"}, got)
	}
}

func TestFilterRollsBackCaptures(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)

	f, err := NewRuntime("").NewFilter(match.MustPattern("$A == $B", lang), `false`, "<inline>")
	require.NoError(t, err)

	dfs := root.DFS()
	defer dfs.Close()
	env := match.NewMetaVarEnv()
	for n, ok := dfs.Next(); ok; n, ok = dfs.Next() {
		_, matched := f.MatchNodeWithEnv(n, env)
		require.False(t, matched)
	}
	assert.Equal(t, 0, env.Len())
}

func TestFilterForwardsCapabilities(t *testing.T) {
	t.Parallel()
	_, lang := parseGo(t, goTestSource)
	p := match.MustPattern("g($$$)", lang)

	f, err := NewRuntime("").NewFilter(p, `true`, "<inline>")
	require.NoError(t, err)
	assert.True(t, match.PotentialKinds(f).Equal(match.PotentialKinds(p)))
}

func TestNewFilterSyntaxError(t *testing.T) {
	t.Parallel()
	_, lang := parseGo(t, goTestSource)

	f, err := NewRuntime("").NewFilter(match.MustPattern("g($$$)", lang), `1 +`, "broken.risor")
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "broken.risor")
}

func TestNewFilterFileFromFS(t *testing.T) {
	t.Parallel()
	root, lang := parseGo(t, goTestSource)

	fsys := fstest.MapFS{
		"filters/not_err.risor": &fstest.MapFile{Data: []byte(`captures["A"] != "err"` + "\n")},
	}
	rt := NewRuntime("", WithRuntimeFS(fsys))

	f, err := rt.NewFilterFile(match.MustPattern("$A == $A", lang), "/filters/not_err.risor")
	require.NoError(t, err)
	assert.Equal(t, []string{"x == x"}, findTexts(f, root))

	_, err = rt.NewFilterFile(match.MustPattern("$A == $A", lang), "missing.risor")
	assert.Error(t, err)
}

func TestLoadScriptFromDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.risor"), []byte("true\n"), 0o644))

	rt := NewRuntime(dir)
	src, err := rt.LoadScript("ok.risor")
	require.NoError(t, err)
	assert.Equal(t, "true\n", src)

	_, err = rt.LoadScript("nope.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime: loading script")
}
