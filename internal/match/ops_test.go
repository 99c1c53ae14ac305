package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const opsSource = `package main

func f() {
	a := x == x
	g(a)
}

func h() {
	b := x == y
	g(1)
}
`

func TestAllSharesCaptures(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	m := NewAll(MustPattern("$A == $B", goLang), MustPattern("$B == $A", goLang))
	matches := FindAll(m, root).Collect()
	require.Equal(t, []string{"x == x"}, texts(matches))
	assert.Equal(t, []string{"A", "B"}, matches[0].Env().Names())
}

func TestAllWithNot(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	m := NewAll(MustPattern("$A == $B", goLang), NewNot(MustPattern("$A == $A", goLang)))
	matches := FindAll(m, root).Collect()
	require.Equal(t, []string{"x == y"}, texts(matches))
	assert.Equal(t, map[string]string{"A": "x", "B": "y"}, matches[0].Env().Texts())
}

func TestNotAddsNoCaptures(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	m := NewAll(MustPattern("$A == $B", goLang), NewNot(MustPattern("$C == y", goLang)))
	matches := FindAll(m, root).Collect()
	require.Equal(t, []string{"x == x"}, texts(matches))
	assert.Equal(t, []string{"A", "B"}, matches[0].Env().Names())
}

func TestAnyTakesFirstMatchingMember(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	m := NewAny(MustPattern("g(1)", goLang), MustPattern("$A == $A", goLang))
	assert.Equal(t, []string{"x == x", "g(1)"}, texts(FindAll(m, root).Collect()))

	kinds := PotentialKinds(m)
	require.NotNil(t, kinds)
	assert.Equal(t, uint(2), kinds.Count())
}

func TestEmptyCombinators(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)

	assert.Empty(t, FindAll(NewAny(), root).Collect())
	assert.True(t, PotentialKinds(NewAny()).None())

	_, ok := MatchNode(NewAll(), root)
	assert.True(t, ok)
	assert.Nil(t, PotentialKinds(NewAll()))
}

func TestAnyWithoutHintsGivesNoKinds(t *testing.T) {
	t.Parallel()
	re, err := NewRegexMatcher("x")
	require.NoError(t, err)
	m := NewAny(MustPattern("g(1)", mustLang(t, "go")), re)
	assert.Nil(t, PotentialKinds(m))
}

func TestHas(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	m := NewAll(mustKind(t, "function_declaration", "go"), NewHas(MustPattern("g(1)", goLang)))
	matches := FindAll(m, root).Collect()
	require.Len(t, matches, 1)
	assert.Equal(t, "function_declaration", matches[0].Node().Kind())
	assert.Contains(t, matches[0].Text(), "func h()")

	// Only strict descendants count.
	cmp, ok := FindNode(MustPattern("x == y", goLang), root)
	require.True(t, ok)
	_, ok = MatchNode(NewHas(mustKind(t, "binary_expression", "go")), cmp.Node())
	assert.False(t, ok)
}

func TestHasKeepsDescendantCaptures(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	m := NewAll(mustKind(t, "function_declaration", "go"), NewHas(MustPattern("$L == $R", goLang)))
	matches := FindAll(m, root).Collect()
	require.Len(t, matches, 2)
	assert.Equal(t, map[string]string{"L": "x", "R": "x"}, matches[0].Env().Texts())
	assert.Equal(t, map[string]string{"L": "x", "R": "y"}, matches[1].Env().Texts())
}

func TestInside(t *testing.T) {
	t.Parallel()
	root := parse(t, "go", opsSource)
	goLang := mustLang(t, "go")

	re, err := NewRegexMatcher("a")
	require.NoError(t, err)
	inF := NewInside(NewAll(mustKind(t, "function_declaration", "go"), NewHas(re)))

	m := NewAll(MustPattern("g($A)", goLang), inF)
	matches := FindAll(m, root).Collect()
	require.Equal(t, []string{"g(a)"}, texts(matches))
	assert.True(t, PotentialKinds(m).Equal(PotentialKinds(MustPattern("g($A)", goLang))))
	assert.Nil(t, PotentialKinds(inF))

	// The root has no ancestors.
	_, ok := MatchNode(NewInside(MatchAll{}), root)
	assert.False(t, ok)
}
