package scripts

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/runtime"
	"github.com/jward/treegrep/internal/syntax"
)

func TestEmbeddedModules(t *testing.T) {
	t.Parallel()
	names, err := fs.Glob(FS, "*.risor")
	require.NoError(t, err)
	assert.Contains(t, names, "names.risor")
}

func TestFilterImportsEmbeddedModule(t *testing.T) {
	t.Parallel()
	lang, ok := syntax.Lookup("go")
	require.True(t, ok)
	root, err := lang.ParseString(context.Background(), "package main\n\nfunc f() {\n\ta := err == err\n\tb := x == x\n\tc := nil == nil\n}\n")
	require.NoError(t, err)
	defer root.Close()

	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(FS))
	f, err := rt.NewFilter(match.MustPattern("$A == $A", lang),
		"import names\n!names.is_err(captures[\"A\"]) && !names.is_nil(capture(\"A\"))", "self-compare")
	require.NoError(t, err)

	var got []string
	for _, m := range match.FindAll(f, root.Node()).Collect() {
		got = append(got, m.Text())
	}
	assert.Equal(t, []string{"x == x"}, got)
}
