package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/treegrep/internal/syntax"
)

func TestKindMatcher(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)

	km, err := NewKindMatcher("binary_expression", mustLang(t, "go"))
	require.NoError(t, err)
	assert.Equal(t, "kind:binary_expression", km.String())

	dfs := root.DFS()
	defer dfs.Close()
	for n, ok := dfs.Next(); ok; n, ok = dfs.Next() {
		_, matched := MatchNode(km, n)
		assert.Equal(t, n.Kind() == "binary_expression", matched, "node %s", n.Kind())
	}

	matches := FindAll(km, root).Collect()
	assert.Equal(t, []string{"x == x", "x == y"}, texts(matches))
}

func TestKindMatcherUnknownKind(t *testing.T) {
	t.Parallel()
	km, err := NewKindMatcher("no_such_kind", mustLang(t, "go"))
	require.Error(t, err)
	assert.Nil(t, km)
	assert.ErrorIs(t, err, ErrUnknownKind)

	var kerr *KindMatcherError
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, "no_such_kind", kerr.Kind)
	assert.Equal(t, "go", kerr.Language)
}

func TestRegexMatcher(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)

	re, err := NewRegexMatcher("x|y")
	require.NoError(t, err)
	assert.Nil(t, PotentialKinds(re))

	matches := FindAll(re, root).Collect()
	assert.Equal(t, []string{"x", "x", "x", "y"}, texts(matches))

	// Anchored at both ends of the node text.
	anchored, err := NewRegexMatcher("x")
	require.NoError(t, err)
	for _, m := range FindAll(anchored, root).Collect() {
		assert.Equal(t, "x", m.Text())
	}
}

func TestRegexMatcherInvalid(t *testing.T) {
	t.Parallel()
	re, err := NewRegexMatcher("(")
	require.Error(t, err)
	assert.Nil(t, re)
	assert.ErrorIs(t, err, ErrInvalidRegex)

	var rerr *RegexMatcherError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "(", rerr.Expr)
}

func TestTextMatcherUsesCandidateLanguage(t *testing.T) {
	t.Parallel()
	m := Text("g($A)")

	goRoot := parse(t, "go", "package main\n\nfunc f() {\n\tg(1)\n}\n")
	jsRoot := parse(t, "javascript", "g(2);\n")

	gm, ok := FindNode(m, goRoot)
	require.True(t, ok)
	a, _ := gm.Get("A")
	assert.Equal(t, "1", a.Text())

	jm, ok := FindNode(m, jsRoot)
	require.True(t, ok)
	a, _ = jm.Get("A")
	assert.Equal(t, "2", a.Text())

	n, ok := MatchLen(m, jm.Node())
	require.True(t, ok)
	assert.Equal(t, len("g(2)"), n)
}

func TestTextMatcherInvalidNeverMatches(t *testing.T) {
	t.Parallel()
	root := parse(t, "javascript", "g(1);\n")
	_, ok := FindNode(Text("g("), root)
	assert.False(t, ok)
	_, ok = MatchLen(Text("g("), root)
	assert.False(t, ok)
}

func TestTextCachesCompiledPatterns(t *testing.T) {
	t.Parallel()
	goLang, jsLang := mustLang(t, "go"), mustLang(t, "javascript")
	m := Text("cached($A)")

	first, ok := m.pattern(goLang)
	require.True(t, ok)
	again, ok := m.pattern(goLang)
	require.True(t, ok)
	assert.Same(t, first, again)

	js, ok := m.pattern(jsLang)
	require.True(t, ok)
	assert.NotSame(t, first, js)
	assert.Equal(t, "javascript", js.Language().Name())

	// Failures are remembered too.
	_, ok = Text("cached(").pattern(jsLang)
	assert.False(t, ok)
	v, found := textPatterns.Load(textKey{src: "cached(", lang: jsLang})
	require.True(t, found)
	assert.Nil(t, v.(*Pattern))
}

func TestRefForwardsCapabilities(t *testing.T) {
	t.Parallel()
	js := mustLang(t, "javascript")
	root := parse(t, "javascript", "foo();\n")

	p := MustPattern("foo()", js)
	r := Ref(p)
	assert.True(t, PotentialKinds(r).Equal(PotentialKinds(p)))

	m, ok := FindNode(r, root)
	require.True(t, ok)
	n, ok := MatchLen(r, m.Node())
	require.True(t, ok)
	assert.Equal(t, 5, n)

	// A reference to a matcher without hints forwards "no information".
	re, err := NewRegexMatcher("foo")
	require.NoError(t, err)
	assert.Nil(t, PotentialKinds(Ref(re)))
	_, ok = MatchLen(Ref(re), root)
	assert.False(t, ok)
}

func TestMatchAllAndMatchNone(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)

	m, ok := FindNode(MatchAll{}, root)
	require.True(t, ok)
	assert.True(t, m.Node().Equal(root))
	assert.Nil(t, PotentialKinds(MatchAll{}))

	// MatchAll claims the root, so nothing beneath it is reported.
	assert.Len(t, FindAll(MatchAll{}, root).Collect(), 1)

	_, ok = FindNode(MatchNone{}, root)
	assert.False(t, ok)
	assert.True(t, PotentialKinds(MatchNone{}).None())
	assert.Empty(t, FindAll(MatchNone{}, root).Collect())
}

func TestPotentialKindsAreSound(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)
	goLang := mustLang(t, "go")

	km, err := NewKindMatcher("call_expression", goLang)
	require.NoError(t, err)
	matchers := []Matcher{
		MustPattern("$A == $A", goLang),
		MustPattern("g($$$ARGS)", goLang),
		km,
		NewAny(km, MustPattern("$A == $B", goLang)),
		NewAll(km, MustPattern("g()", goLang)),
	}
	for _, m := range matchers {
		kinds := PotentialKinds(m)
		require.NotNil(t, kinds)
		dfs := root.DFS()
		for n, ok := dfs.Next(); ok; n, ok = dfs.Next() {
			if _, matched := MatchNode(m, n); matched {
				assert.True(t, kinds.Test(uint(n.KindID())), "%v matched %s outside its kinds", m, n.Kind())
			}
		}
		dfs.Close()
	}
}

func TestFindNodeAgreesWithFindAll(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)
	goLang := mustLang(t, "go")

	km, err := NewKindMatcher("identifier", goLang)
	require.NoError(t, err)
	for _, m := range []Matcher{
		MustPattern("$A == $B", goLang),
		MustPattern("g($$$)", goLang),
		km,
		Text("x"),
	} {
		first, ok := FindNode(m, root)
		require.True(t, ok)
		all := FindAll(m, root).Collect()
		require.NotEmpty(t, all)
		assert.True(t, first.Equal(all[0]))
	}
}

func TestFindAllDoesNotOverlap(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", "package main\n\nfunc f() {\n\tg(g(1))\n\tg(2)\n}\n")

	matches := FindAll(MustPattern("g($A)", mustLang(t, "go")), root).Collect()
	require.Equal(t, []string{"g(g(1))", "g(2)"}, texts(matches))

	a, ok := matches[0].Get("A")
	require.True(t, ok)
	assert.Equal(t, "g(1)", a.Text())
}

func TestFindAllSeqStopsEarly(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)

	var got []string
	for m := range FindAll(MustPattern("$A == $B", mustLang(t, "go")), root).Seq() {
		got = append(got, m.Text())
		break
	}
	assert.Equal(t, []string{"x == x"}, got)
}

func TestFindAllStartsAtGivenNode(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)
	goLang := mustLang(t, "go")

	call, ok := FindNode(MustPattern("g(1, 2, 3)", goLang), root)
	require.True(t, ok)

	// The search covers the call and its subtree only.
	matches := FindAll(MustPattern("$A == $B", goLang), call.Node()).Collect()
	assert.Empty(t, matches)

	matches = FindAll(MustPattern("g($$$)", goLang), call.Node()).Collect()
	assert.Equal(t, []string{"g(1, 2, 3)"}, texts(matches))
}

func TestMetaVarEnv(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", goSource)
	ids := FindAll(mustKind(t, "identifier", "go"), root).Collect()
	byText := make(map[string]syntax.Node)
	for _, m := range ids {
		if _, ok := byText[m.Text()]; !ok {
			byText[m.Text()] = m.Node()
		}
	}

	env := NewMetaVarEnv()
	assert.True(t, env.Insert("A", byText["x"]))
	assert.True(t, env.Insert("A", byText["x"]), "equal re-insert")
	assert.False(t, env.Insert("A", byText["y"]), "unequal re-insert")

	cp := env.Checkpoint()
	assert.True(t, env.Insert("B", byText["y"]))
	assert.True(t, env.InsertMulti("C", nil))
	assert.True(t, env.InsertMulti("A", []syntax.Node{byText["y"]}), "separate namespaces")
	assert.Equal(t, 4, env.Len())
	assert.Equal(t, "{A: x, B: y, A: [y], C: []}", env.String())

	clone := env.Clone()
	env.Rollback(cp)
	assert.Equal(t, []string{"A"}, env.Names())
	assert.Empty(t, env.MultiNames())
	_, ok := env.Get("B")
	assert.False(t, ok)
	_, ok = env.GetMulti("C")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"A": "x", "B": "y"}, clone.Texts())
	assert.Equal(t, map[string][]string{"A": {"y"}, "C": {}}, clone.MultiTexts())
}

func mustKind(t *testing.T, kind, lang string) *KindMatcher {
	t.Helper()
	km, err := NewKindMatcher(kind, mustLang(t, lang))
	require.NoError(t, err)
	return km
}
