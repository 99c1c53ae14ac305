package match

import "github.com/jward/treegrep/internal/syntax"

// NodeMatch is a successful match: the matched node and the captures made
// while matching it.
type NodeMatch struct {
	node syntax.Node
	env  *MetaVarEnv
}

// NewNodeMatch pairs a node with its environment.
func NewNodeMatch(node syntax.Node, env *MetaVarEnv) *NodeMatch {
	return &NodeMatch{node: node, env: env}
}

// Node returns the matched node.
func (m *NodeMatch) Node() syntax.Node { return m.node }

// Env returns the captures of the match.
func (m *NodeMatch) Env() *MetaVarEnv { return m.env }

// Get returns the node captured by a single meta-variable.
func (m *NodeMatch) Get(name string) (syntax.Node, bool) { return m.env.Get(name) }

// GetMulti returns the nodes captured by a variadic meta-variable.
func (m *NodeMatch) GetMulti(name string) ([]syntax.Node, bool) { return m.env.GetMulti(name) }

// Text returns the text of the matched node.
func (m *NodeMatch) Text() string { return m.node.Text() }

// Equal reports whether both matches refer to the same node.
func (m *NodeMatch) Equal(o *NodeMatch) bool {
	return m.node.Equal(o.node)
}
