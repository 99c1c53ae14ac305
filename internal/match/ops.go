package match

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/jward/treegrep/internal/syntax"
)

// All matches a node that every member matches. Captures of all members are
// merged into one environment, so members unify shared names.
type All struct {
	matchers []Matcher
	kinds    *bitset.BitSet
}

// NewAll returns the conjunction of ms. An empty conjunction matches every
// node.
func NewAll(ms ...Matcher) *All {
	var kinds *bitset.BitSet
	for _, m := range ms {
		k := PotentialKinds(m)
		if k == nil {
			continue
		}
		if kinds == nil {
			kinds = k.Clone()
		} else {
			kinds.InPlaceIntersection(k)
		}
	}
	return &All{matchers: ms, kinds: kinds}
}

func (a *All) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	if a.kinds != nil && !a.kinds.Test(uint(node.KindID())) {
		return syntax.Node{}, false
	}
	cp := env.Checkpoint()
	for _, m := range a.matchers {
		if _, ok := m.MatchNodeWithEnv(node, env); !ok {
			env.Rollback(cp)
			return syntax.Node{}, false
		}
	}
	return node, true
}

func (a *All) PotentialKinds() *bitset.BitSet { return a.kinds }

// MatchLen delegates to the first member that can compute a span.
func (a *All) MatchLen(node syntax.Node) (int, bool) {
	for _, m := range a.matchers {
		if _, ok := m.(MatchLener); ok {
			return MatchLen(m, node)
		}
	}
	return 0, false
}

// Any matches a node that at least one member matches; the first matching
// member, in order, provides the captures and the reported node.
type Any struct {
	matchers []Matcher
	kinds    *bitset.BitSet
}

// NewAny returns the disjunction of ms. An empty disjunction matches nothing.
func NewAny(ms ...Matcher) *Any {
	kinds := bitset.New(0)
	for _, m := range ms {
		k := PotentialKinds(m)
		if k == nil {
			kinds = nil
			break
		}
		kinds.InPlaceUnion(k)
	}
	return &Any{matchers: ms, kinds: kinds}
}

func (a *Any) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	for _, m := range a.matchers {
		if matched, ok := m.MatchNodeWithEnv(node, env); ok {
			return matched, true
		}
	}
	return syntax.Node{}, false
}

func (a *Any) PotentialKinds() *bitset.BitSet { return a.kinds }

func (a *Any) MatchLen(node syntax.Node) (int, bool) {
	for _, m := range a.matchers {
		if _, ok := m.MatchNodeWithEnv(node, NewMetaVarEnv()); ok {
			return MatchLen(m, node)
		}
	}
	return 0, false
}

// Not matches every node its operand does not match. It never adds captures.
type Not struct {
	inner Matcher
}

// NewNot negates m.
func NewNot(m Matcher) *Not { return &Not{inner: m} }

func (n *Not) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	cp := env.Checkpoint()
	if _, ok := n.inner.MatchNodeWithEnv(node, env); ok {
		env.Rollback(cp)
		return syntax.Node{}, false
	}
	return node, true
}

// Has matches a node with at least one strict descendant matched by its
// operand. Captures of the first such descendant, in pre-order, are kept.
type Has struct {
	inner Matcher
	kinds *bitset.BitSet
}

// NewHas wraps m as a descendant constraint.
func NewHas(m Matcher) *Has { return &Has{inner: m, kinds: PotentialKinds(m)} }

func (h *Has) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	dfs := node.DFS()
	defer dfs.Close()
	dfs.Next() // node itself
	for {
		d, ok := dfs.Next()
		if !ok {
			return syntax.Node{}, false
		}
		if h.kinds != nil && !h.kinds.Test(uint(d.KindID())) {
			continue
		}
		if _, ok := h.inner.MatchNodeWithEnv(d, env); ok {
			return node, true
		}
	}
}

// Inside matches a node with at least one strict ancestor matched by its
// operand. The nearest such ancestor provides the captures.
type Inside struct {
	inner Matcher
	kinds *bitset.BitSet
}

// NewInside wraps m as an ancestor constraint.
func NewInside(m Matcher) *Inside { return &Inside{inner: m, kinds: PotentialKinds(m)} }

func (in *Inside) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	for p, ok := node.Parent(); ok; p, ok = p.Parent() {
		if in.kinds != nil && !in.kinds.Test(uint(p.KindID())) {
			continue
		}
		if _, ok := in.inner.MatchNodeWithEnv(p, env); ok {
			return node, true
		}
	}
	return syntax.Node{}, false
}
