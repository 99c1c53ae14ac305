package match

import (
	"iter"

	"github.com/bits-and-blooms/bitset"

	"github.com/jward/treegrep/internal/syntax"
)

// FindAllNodes lazily yields the matches of one Matcher over a pre-order
// traversal. It is single pass and forward only.
//
// Once a node matches, its subtree is not searched again: the first match
// wins a region and matches never overlap. A pattern such as Some($A) over
// Some(Some(1)) therefore reports only the outer call.
type FindAllNodes struct {
	matcher Matcher
	kinds   *bitset.BitSet
	dfs     *syntax.Pre
}

// FindAll returns an iterator over the matches of m in the subtree rooted at
// node, node included.
func FindAll(m Matcher, node syntax.Node) *FindAllNodes {
	it := &FindAllNodes{
		matcher: m,
		kinds:   PotentialKinds(m),
		dfs:     node.DFS(),
	}
	if it.kinds != nil && it.kinds.None() {
		// Nothing can match; skip the traversal altogether.
		it.dfs.Close()
	}
	return it
}

// Next returns the next match, or false when the traversal is exhausted.
func (it *FindAllNodes) Next() (*NodeMatch, bool) {
	for {
		cand, ok := it.dfs.Next()
		if !ok {
			return nil, false
		}
		if it.kinds != nil && !it.kinds.Test(uint(cand.KindID())) {
			continue
		}
		if nm, ok := MatchNode(it.matcher, cand); ok {
			it.dfs.SkipSubtree()
			return nm, true
		}
	}
}

// Seq adapts the iterator for range-over-func loops.
func (it *FindAllNodes) Seq() iter.Seq[*NodeMatch] {
	return func(yield func(*NodeMatch) bool) {
		defer it.Close()
		for {
			nm, ok := it.Next()
			if !ok || !yield(nm) {
				return
			}
		}
	}
}

// Collect drains the iterator into a slice.
func (it *FindAllNodes) Collect() []*NodeMatch {
	var out []*NodeMatch
	for nm := range it.Seq() {
		out = append(out, nm)
	}
	return out
}

// Close releases the traversal cursor early. Exhausted iterators release it
// on their own.
func (it *FindAllNodes) Close() {
	it.dfs.Close()
}
