package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Root owns a parsed tree together with its source bytes and Language.
type Root struct {
	tree *sitter.Tree
	src  []byte
	lang *Language
}

// Node returns the root node of the tree.
func (r *Root) Node() Node {
	return Node{inner: r.tree.RootNode(), root: r}
}

// Source returns the bytes the tree was parsed from.
func (r *Root) Source() []byte { return r.src }

// Language returns the grammar the tree was parsed with.
func (r *Root) Language() *Language { return r.lang }

// HasError reports whether the tree contains syntax errors.
func (r *Root) HasError() bool {
	return r.tree.RootNode().HasError()
}

// Close releases the tree. Nodes obtained from r must not be used afterwards.
func (r *Root) Close() {
	r.tree.Close()
}

// Pos is a zero-based (row, column) position. Columns count bytes.
type Pos struct {
	Row    int
	Column int
}

// Node is a reference into a Root's tree. It never owns the tree and is only
// valid while the Root is open. Nodes are cheap values; many may reference
// the same tree for reading.
type Node struct {
	inner *sitter.Node
	root  *Root
}

// IsZero reports whether n refers to no node.
func (n Node) IsZero() bool { return n.inner == nil }

// Sitter returns the underlying tree-sitter node.
func (n Node) Sitter() *sitter.Node { return n.inner }

// Root returns the tree n belongs to.
func (n Node) Root() *Root { return n.root }

// Lang returns the Language of n's tree.
func (n Node) Lang() *Language { return n.root.lang }

// Kind returns the grammar name of the node kind.
func (n Node) Kind() string { return n.inner.Type() }

// KindID returns the kind id of n.
func (n Node) KindID() KindID { return KindID(n.inner.Symbol()) }

// Text returns the source text covered by n.
func (n Node) Text() string { return n.inner.Content(n.root.src) }

// StartByte returns the byte offset where n starts.
func (n Node) StartByte() uint32 { return n.inner.StartByte() }

// EndByte returns the byte offset where n ends.
func (n Node) EndByte() uint32 { return n.inner.EndByte() }

// Start returns the position where n starts.
func (n Node) Start() Pos {
	p := n.inner.StartPoint()
	return Pos{Row: int(p.Row), Column: int(p.Column)}
}

// End returns the position where n ends.
func (n Node) End() Pos {
	p := n.inner.EndPoint()
	return Pos{Row: int(p.Row), Column: int(p.Column)}
}

// IsNamed reports whether n corresponds to a named grammar rule. Unnamed
// nodes are literal tokens such as punctuation and keywords.
func (n Node) IsNamed() bool { return n.inner.IsNamed() }

// IsExtra reports whether n is an extra such as a comment.
func (n Node) IsExtra() bool { return n.inner.IsExtra() }

// IsMissing reports whether n was inserted by error recovery.
func (n Node) IsMissing() bool { return n.inner.IsMissing() }

// IsError reports whether n is an ERROR node.
func (n Node) IsError() bool { return n.inner.IsError() }

// HasError reports whether n's subtree contains ERROR or missing nodes.
func (n Node) HasError() bool { return n.inner.HasError() }

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool { return n.inner.ChildCount() == 0 }

// ChildCount returns the number of children, named and unnamed.
func (n Node) ChildCount() int { return int(n.inner.ChildCount()) }

// Child returns the i-th child. It returns the zero Node when out of range.
func (n Node) Child(i int) Node {
	c := n.inner.Child(i)
	if c == nil {
		return Node{}
	}
	return Node{inner: c, root: n.root}
}

// Children returns all children in source order.
func (n Node) Children() []Node {
	count := n.ChildCount()
	if count == 0 {
		return nil
	}
	children := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.inner.Child(i); c != nil {
			children = append(children, Node{inner: c, root: n.root})
		}
	}
	return children
}

// SignificantChildren returns the children of n that are not extras.
func (n Node) SignificantChildren() []Node {
	children := n.Children()
	out := children[:0]
	for _, c := range children {
		if !c.IsExtra() {
			out = append(out, c)
		}
	}
	return out
}

// Parent returns the parent of n, or false at the root.
func (n Node) Parent() (Node, bool) {
	p := n.inner.Parent()
	if p == nil {
		return Node{}, false
	}
	return Node{inner: p, root: n.root}, true
}

// Equal reports whether n and o denote the same node of the same tree.
func (n Node) Equal(o Node) bool {
	if n.inner == nil || o.inner == nil {
		return n.inner == o.inner
	}
	return n.root == o.root &&
		n.StartByte() == o.StartByte() &&
		n.EndByte() == o.EndByte() &&
		n.KindID() == o.KindID()
}

// DFS returns a pre-order traversal starting at (and including) n.
func (n Node) DFS() *Pre {
	return newPre(n)
}

// String returns the S-expression of the subtree.
func (n Node) String() string { return n.inner.String() }
