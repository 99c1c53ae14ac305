package match

import (
	"sort"
	"strings"

	"github.com/jward/treegrep/internal/syntax"
)

// MetaVarEnv holds the captures of one match attempt. Single captures and
// variadic captures live in separate namespaces, so $A and $$$A never clash.
//
// The first insertion of a name binds it; later insertions must be
// structurally equal to the existing binding. Insertions are recorded in an
// undo log so a failed sub-match can be rolled back with Checkpoint and
// Rollback.
type MetaVarEnv struct {
	single map[string]syntax.Node
	multi  map[string][]syntax.Node
	log    []binding
}

type binding struct {
	name  string
	multi bool
}

// NewMetaVarEnv returns an empty environment.
func NewMetaVarEnv() *MetaVarEnv {
	return &MetaVarEnv{
		single: make(map[string]syntax.Node),
		multi:  make(map[string][]syntax.Node),
	}
}

// Insert binds name to node. If name is already bound, Insert reports
// whether node is structurally equal to the existing binding and leaves the
// environment unchanged.
func (e *MetaVarEnv) Insert(name string, node syntax.Node) bool {
	if prev, ok := e.single[name]; ok {
		return NodesEqual(prev, node)
	}
	e.single[name] = node
	e.log = append(e.log, binding{name: name})
	return true
}

// InsertMulti binds name to an ordered run of nodes. An empty run is a valid
// binding. Re-insertion follows the same rule as Insert.
func (e *MetaVarEnv) InsertMulti(name string, nodes []syntax.Node) bool {
	if prev, ok := e.multi[name]; ok {
		if len(prev) != len(nodes) {
			return false
		}
		for i := range prev {
			if !NodesEqual(prev[i], nodes[i]) {
				return false
			}
		}
		return true
	}
	run := make([]syntax.Node, len(nodes))
	copy(run, nodes)
	e.multi[name] = run
	e.log = append(e.log, binding{name: name, multi: true})
	return true
}

// Get returns the node bound to name.
func (e *MetaVarEnv) Get(name string) (syntax.Node, bool) {
	n, ok := e.single[name]
	return n, ok
}

// GetMulti returns the run of nodes bound to the variadic name.
func (e *MetaVarEnv) GetMulti(name string) ([]syntax.Node, bool) {
	nodes, ok := e.multi[name]
	return nodes, ok
}

// Names returns the bound single-capture names, sorted.
func (e *MetaVarEnv) Names() []string {
	return sortedKeys(e.single)
}

// MultiNames returns the bound variadic names, sorted.
func (e *MetaVarEnv) MultiNames() []string {
	return sortedKeys(e.multi)
}

// Len returns the number of bindings of both kinds.
func (e *MetaVarEnv) Len() int {
	return len(e.single) + len(e.multi)
}

// Checkpoint marks the current state for a later Rollback.
func (e *MetaVarEnv) Checkpoint() int {
	return len(e.log)
}

// Rollback removes every binding made after cp.
func (e *MetaVarEnv) Rollback(cp int) {
	for i := len(e.log) - 1; i >= cp; i-- {
		b := e.log[i]
		if b.multi {
			delete(e.multi, b.name)
		} else {
			delete(e.single, b.name)
		}
	}
	if cp < len(e.log) {
		e.log = e.log[:cp]
	}
}

// Clone returns an independent copy of e. Bound nodes are shared.
func (e *MetaVarEnv) Clone() *MetaVarEnv {
	c := NewMetaVarEnv()
	for k, v := range e.single {
		c.single[k] = v
	}
	for k, v := range e.multi {
		c.multi[k] = v
	}
	c.log = append(c.log, e.log...)
	return c
}

// Texts returns the source text of every single capture.
func (e *MetaVarEnv) Texts() map[string]string {
	out := make(map[string]string, len(e.single))
	for k, n := range e.single {
		out[k] = n.Text()
	}
	return out
}

// MultiTexts returns the source text of every node of every variadic capture.
func (e *MetaVarEnv) MultiTexts() map[string][]string {
	out := make(map[string][]string, len(e.multi))
	for k, nodes := range e.multi {
		texts := make([]string, len(nodes))
		for i, n := range nodes {
			texts[i] = n.Text()
		}
		out[k] = texts
	}
	return out
}

func (e *MetaVarEnv) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range e.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.single[k].Text())
	}
	for _, k := range e.MultiNames() {
		if b.Len() > 1 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": [")
		for j, n := range e.multi[k] {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n.Text())
		}
		b.WriteByte(']')
	}
	b.WriteByte('}')
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NodesEqual reports whether a and b are structurally equal: same kind,
// leaves with the same text, and pairwise equal non-extra children.
// Whitespace and comments do not participate.
func NodesEqual(a, b syntax.Node) bool {
	if a.KindID() != b.KindID() {
		return false
	}
	if a.IsLeaf() || b.IsLeaf() {
		return a.IsLeaf() && b.IsLeaf() && a.Text() == b.Text()
	}
	ac := a.SignificantChildren()
	bc := b.SignificantChildren()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !NodesEqual(ac[i], bc[i]) {
			return false
		}
	}
	return true
}
