package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Pre is a forward-only, pre-order depth-first traversal of a subtree. It is
// not restartable and must not be shared between goroutines.
type Pre struct {
	root    *Root
	cursor  *sitter.TreeCursor
	depth   int
	started bool
	done    bool
	// skip suppresses descending into the node returned last.
	skip bool
}

func newPre(n Node) *Pre {
	return &Pre{
		root:   n.root,
		cursor: sitter.NewTreeCursor(n.inner),
	}
}

// Next returns the next node in pre-order, or false once the subtree is
// exhausted.
func (p *Pre) Next() (Node, bool) {
	if p.done {
		return Node{}, false
	}
	if !p.started {
		p.started = true
		return p.current(), true
	}
	skip := p.skip
	p.skip = false
	if !skip && p.cursor.GoToFirstChild() {
		p.depth++
		return p.current(), true
	}
	for p.depth > 0 {
		if p.cursor.GoToNextSibling() {
			return p.current(), true
		}
		p.cursor.GoToParent()
		p.depth--
	}
	p.finish()
	return Node{}, false
}

// SkipSubtree makes the following Next skip the descendants of the node most
// recently returned.
func (p *Pre) SkipSubtree() {
	p.skip = true
}

// Close releases the cursor. It is called automatically on exhaustion.
func (p *Pre) Close() {
	p.finish()
}

func (p *Pre) finish() {
	if p.done {
		return
	}
	p.done = true
	p.cursor.Close()
}

func (p *Pre) current() Node {
	return Node{inner: p.cursor.CurrentNode(), root: p.root}
}
