package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"main.go", "go", true},
		{"app.ts", "typescript", true},
		{"app.tsx", "tsx", true},
		{"app.js", "javascript", true},
		{"app.jsx", "javascript", true},
		{"lib.mjs", "javascript", true},
		{"script.py", "python", true},
		{"lib.rs", "rust", true},
		{"main.c", "c", true},
		{"util.h", "c", true},
		{"main.cpp", "cpp", true},
		{"Main.java", "java", true},
		{"index.php", "php", true},
		{"app.rb", "ruby", true},
		{"MAIN.GO", "go", true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		l, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, l.Name())
	}

	golang, ok := Lookup("Golang")
	require.True(t, ok)
	goLang, _ := Lookup("go")
	assert.Same(t, goLang, golang)

	_, ok = Lookup("cobol")
	assert.False(t, ok)

	l, ok := ForFile("x/y/z.py")
	require.True(t, ok)
	assert.Equal(t, "python", l.Name())
}

func TestExpandoChar(t *testing.T) {
	t.Parallel()

	goLang, _ := Lookup("go")
	assert.Equal(t, "µA == µµµB", goLang.PreProcessPattern("$A == $$$B"))

	js, _ := Lookup("javascript")
	assert.Equal(t, MetaVarChar, js.ExpandoChar())
	assert.Equal(t, "$A == $$$B", js.PreProcessPattern("$A == $$$B"))
}

func TestKindTable(t *testing.T) {
	t.Parallel()
	goLang, _ := Lookup("go")

	id, ok := goLang.KindID("call_expression")
	require.True(t, ok)
	assert.Equal(t, "call_expression", goLang.KindName(id))

	_, ok = goLang.KindID("no_such_kind")
	assert.False(t, ok)

	id, ok = goLang.KindID("ERROR")
	require.True(t, ok)
	assert.Equal(t, ErrorKind, id)
	assert.Contains(t, goLang.Kinds(), "function_declaration")
}

func TestParseAndNodes(t *testing.T) {
	t.Parallel()
	goLang, _ := Lookup("go")

	root, err := goLang.ParseString(context.Background(), "package main\n\nfunc f() { g(1) }\n")
	require.NoError(t, err)
	defer root.Close()
	assert.False(t, root.HasError())

	n := root.Node()
	assert.Equal(t, "source_file", n.Kind())
	assert.Same(t, goLang, n.Lang())
	_, ok := n.Parent()
	assert.False(t, ok)

	id, _ := goLang.KindID("call_expression")
	var call Node
	dfs := n.DFS()
	for c, ok := dfs.Next(); ok; c, ok = dfs.Next() {
		if c.KindID() == id {
			call = c
			break
		}
	}
	dfs.Close()
	require.False(t, call.IsZero())
	assert.Equal(t, "g(1)", call.Text())
	assert.Equal(t, Pos{Row: 2, Column: 11}, call.Start())
	assert.Equal(t, Pos{Row: 2, Column: 15}, call.End())
	assert.Equal(t, uint32(len("g(1)")), call.EndByte()-call.StartByte())

	parent, ok := call.Parent()
	require.True(t, ok)
	assert.Equal(t, "expression_statement", parent.Kind())
	assert.True(t, parent.Child(0).Equal(call))
	assert.True(t, parent.Child(5).IsZero())
}

func TestPreOrderTraversal(t *testing.T) {
	t.Parallel()
	js, _ := Lookup("javascript")

	root, err := js.ParseString(context.Background(), "a(b);\nc;\n")
	require.NoError(t, err)
	defer root.Close()

	var kinds []string
	dfs := root.Node().DFS()
	for n, ok := dfs.Next(); ok; n, ok = dfs.Next() {
		if n.IsNamed() {
			kinds = append(kinds, n.Kind()+":"+n.Text())
		}
	}
	assert.Equal(t, []string{
		"program:a(b);\nc;\n",
		"expression_statement:a(b);",
		"call_expression:a(b)",
		"identifier:a",
		"arguments:(b)",
		"identifier:b",
		"expression_statement:c;",
		"identifier:c",
	}, kinds)

	// After the traversal is exhausted it stays exhausted.
	_, ok := dfs.Next()
	assert.False(t, ok)
}

func TestPreSkipSubtree(t *testing.T) {
	t.Parallel()
	js, _ := Lookup("javascript")

	root, err := js.ParseString(context.Background(), "a(b);\nc;\n")
	require.NoError(t, err)
	defer root.Close()

	var named []string
	dfs := root.Node().DFS()
	defer dfs.Close()
	for n, ok := dfs.Next(); ok; n, ok = dfs.Next() {
		if !n.IsNamed() {
			continue
		}
		named = append(named, n.Kind())
		if n.Kind() == "call_expression" {
			dfs.SkipSubtree()
		}
	}
	assert.Equal(t, []string{"program", "expression_statement", "call_expression", "expression_statement", "identifier"}, named)
}

func TestPreStaysInsideSubtree(t *testing.T) {
	t.Parallel()
	js, _ := Lookup("javascript")

	root, err := js.ParseString(context.Background(), "a(b);\nc;\n")
	require.NoError(t, err)
	defer root.Close()

	first := root.Node().Child(0)
	var texts []string
	dfs := first.DFS()
	defer dfs.Close()
	for n, ok := dfs.Next(); ok; n, ok = dfs.Next() {
		texts = append(texts, n.Text())
	}
	assert.Equal(t, []string{"a(b);", "a(b)", "a", "(b)", "(", "b", ")", ";"}, texts)
}
