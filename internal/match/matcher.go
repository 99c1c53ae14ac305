// Package match implements structural matching over tree-sitter syntax trees.
//
// A Matcher decides whether a node matches and records captures in a
// MetaVarEnv. Pattern unifies a parsed code snippet with meta-variables
// against candidates; KindMatcher and RegexMatcher check one criterion;
// All, Any, Not, Has and Inside compose matchers. FindNode and FindAll walk a
// subtree in pre-order and report NodeMatches.
//
// Matchers are immutable after construction and safe for concurrent use.
// All construction errors are returned by the constructors; matching itself
// only ever reports matched or not matched.
package match

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/jward/treegrep/internal/syntax"
)

// Matcher is the capability shared by every matching strategy.
//
// MatchNodeWithEnv returns the node the match is attributed to (usually node
// itself) and true on success, leaving env updated. On failure it returns
// false and env is left exactly as it was.
type Matcher interface {
	MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool)
}

// KindHinter is implemented by matchers that can cheaply tell which node
// kinds they could possibly match. A nil set means no information. The set
// must be a superset of the kinds that can really match.
type KindHinter interface {
	PotentialKinds() *bitset.BitSet
}

// MatchLener is implemented by matchers that can compute the length of a
// match span, excluding trailing punctuation.
type MatchLener interface {
	MatchLen(node syntax.Node) (int, bool)
}

// PotentialKinds returns m's kind hint, or nil when m gives none.
func PotentialKinds(m Matcher) *bitset.BitSet {
	if h, ok := m.(KindHinter); ok {
		return h.PotentialKinds()
	}
	return nil
}

// MatchLen returns the byte length of m's match span on node. Matchers that do
// not implement MatchLener report false.
func MatchLen(m Matcher, node syntax.Node) (int, bool) {
	if l, ok := m.(MatchLener); ok {
		return l.MatchLen(node)
	}
	return 0, false
}

// MatchNode matches node with a fresh environment.
func MatchNode(m Matcher, node syntax.Node) (*NodeMatch, bool) {
	env := NewMetaVarEnv()
	matched, ok := m.MatchNodeWithEnv(node, env)
	if !ok {
		return nil, false
	}
	return NewNodeMatch(matched, env), true
}

// FindNode returns the first match in a pre-order traversal starting at (and
// including) node. It always agrees with the first item of FindAll.
func FindNode(m Matcher, node syntax.Node) (*NodeMatch, bool) {
	it := FindAll(m, node)
	defer it.Close()
	return it.Next()
}

// Text is a pattern snippet used directly as a Matcher. It is compiled
// against the Language of each candidate, so one Text works for every
// grammar. A snippet that does not compile for the candidate's Language
// never matches; use NewPattern to surface compilation errors.
type Text string

type textKey struct {
	src  string
	lang *syntax.Language
}

// textPatterns caches compiled Text snippets per Language. Failed
// compilations are cached as nil.
var textPatterns sync.Map // textKey -> *Pattern

func (t Text) pattern(lang *syntax.Language) (*Pattern, bool) {
	key := textKey{src: string(t), lang: lang}
	if v, ok := textPatterns.Load(key); ok {
		p := v.(*Pattern)
		return p, p != nil
	}
	p, err := NewPattern(string(t), lang)
	if err != nil {
		p = nil
	}
	v, _ := textPatterns.LoadOrStore(key, p)
	p = v.(*Pattern)
	return p, p != nil
}

func (t Text) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	p, ok := t.pattern(node.Lang())
	if !ok {
		return syntax.Node{}, false
	}
	return p.MatchNodeWithEnv(node, env)
}

func (t Text) MatchLen(node syntax.Node) (int, bool) {
	p, ok := t.pattern(node.Lang())
	if !ok {
		return 0, false
	}
	return p.MatchLen(node)
}

// Ref returns a non-owning view of m. The view forwards every capability to
// m directly, one level of indirection per Ref.
func Ref(m Matcher) Matcher {
	return ref{m: m}
}

type ref struct {
	m Matcher
}

func (r ref) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	return r.m.MatchNodeWithEnv(node, env)
}

func (r ref) PotentialKinds() *bitset.BitSet {
	return PotentialKinds(r.m)
}

func (r ref) MatchLen(node syntax.Node) (int, bool) {
	return MatchLen(r.m, node)
}

// MatchAll matches every node and gives no pruning information.
type MatchAll struct{}

func (MatchAll) MatchNodeWithEnv(node syntax.Node, _ *MetaVarEnv) (syntax.Node, bool) {
	return node, true
}

// MatchNone matches nothing. Its empty kind set lets searches skip the
// traversal entirely.
type MatchNone struct{}

func (MatchNone) MatchNodeWithEnv(syntax.Node, *MetaVarEnv) (syntax.Node, bool) {
	return syntax.Node{}, false
}

func (MatchNone) PotentialKinds() *bitset.BitSet {
	return bitset.New(0)
}

// kindSet returns a set holding the given kind ids.
func kindSet(ids ...syntax.KindID) *bitset.BitSet {
	s := bitset.New(0)
	for _, id := range ids {
		s.Set(uint(id))
	}
	return s
}
