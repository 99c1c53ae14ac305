package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/treegrep/internal/syntax"
)

func mustLang(t *testing.T, name string) *syntax.Language {
	t.Helper()
	lang, ok := syntax.Lookup(name)
	require.True(t, ok, "language %s not registered", name)
	return lang
}

// parse parses src and closes the tree when the test ends.
func parse(t *testing.T, lang, src string) syntax.Node {
	t.Helper()
	root, err := mustLang(t, lang).ParseString(context.Background(), src)
	require.NoError(t, err)
	t.Cleanup(root.Close)
	return root.Node()
}

func texts(ms []*NodeMatch) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Text()
	}
	return out
}

func nodeTexts(nodes []syntax.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Text()
	}
	return out
}
