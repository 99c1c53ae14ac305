package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/jward/treegrep/internal/syntax"
)

// Errors wrapped by PatternError.
var (
	ErrPatternParse  = errors.New("pattern does not parse")
	ErrNoContent     = errors.New("pattern has no content")
	ErrMultipleNodes = errors.New("pattern has more than one top-level node")
	ErrBareWildcard  = errors.New("pattern is a bare meta-variable and would match anything")
)

// PatternError is returned when a snippet cannot be compiled into a Pattern.
type PatternError struct {
	Pattern  string
	Language string
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Language, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Pattern is a compiled code snippet. Leaves constrain kind and text, inner
// nodes constrain kind and children, and meta-variables capture whatever
// they are aligned with. A Pattern holds no tree-sitter resources and is safe
// for concurrent use.
type Pattern struct {
	src  string
	lang *syntax.Language
	root *patternNode
}

type patternNode struct {
	kind     syntax.KindID
	text     string
	children []*patternNode
	meta     *metaVar
}

type metaVar struct {
	// name is empty for anonymous meta-variables ($_, $$$).
	name     string
	variadic bool
}

// NewPattern compiles src for lang.
func NewPattern(src string, lang *syntax.Language) (*Pattern, error) {
	fail := func(err error) (*Pattern, error) {
		return nil, &PatternError{Pattern: src, Language: lang.Name(), Err: err}
	}

	root, node, err := parseSnippet(lang, lang.PreProcessPattern(src))
	if err != nil {
		return fail(err)
	}
	defer root.Close()

	skeleton := compileNode(node, lang.ExpandoChar())
	if skeleton.meta != nil {
		return fail(ErrBareWildcard)
	}
	return &Pattern{src: src, lang: lang, root: skeleton}, nil
}

// parseSnippet parses a pre-processed snippet and returns the node the
// skeleton is built from. The caller closes the returned Root.
//
// The snippet is parsed as a line of its own first. Grammars that only accept
// statements at the top level reject a bare expression; the snippet is then
// retried as a statement ending in ";" and the terminator is dropped again.
// As a last resort an ERROR node holding exactly one well-formed named node
// stands for that node.
func parseSnippet(lang *syntax.Language, snippet string) (*syntax.Root, syntax.Node, error) {
	root, err := parsePatternSource(lang, snippet+"\n")
	if err != nil {
		return nil, syntax.Node{}, err
	}
	top, topErr := topLevelNode(root)
	if !root.HasError() {
		if topErr != nil {
			root.Close()
			return nil, syntax.Node{}, topErr
		}
		return root, unwrap(top), nil
	}

	if stmt, err := parsePatternSource(lang, snippet+";\n"); err == nil {
		if n, ok := statementBody(stmt); ok {
			root.Close()
			return stmt, n, nil
		}
		stmt.Close()
	}

	if topErr == nil {
		if n := unwrap(top); wellFormed(n) {
			return root, n, nil
		}
	}
	root.Close()
	return nil, syntax.Node{}, ErrPatternParse
}

// statementBody returns the expression of a snippet parsed with a trailing
// ";". The whole tree must be free of errors.
func statementBody(root *syntax.Root) (syntax.Node, bool) {
	if root.HasError() {
		return syntax.Node{}, false
	}
	top, err := topLevelNode(root)
	if err != nil {
		return syntax.Node{}, false
	}
	n, ok := dropTerminator(top)
	if !ok {
		return syntax.Node{}, false
	}
	n = unwrap(n)
	return n, wellFormed(n)
}

func wellFormed(n syntax.Node) bool {
	return !n.IsError() && !n.HasError()
}

func parsePatternSource(lang *syntax.Language, snippet string) (*syntax.Root, error) {
	root, err := lang.ParseString(context.Background(), lang.PatternPrefix()+snippet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatternParse, err)
	}
	return root, nil
}

// topLevelNode returns the single top-level node of a parsed snippet,
// ignoring extras and anything inside the language's pattern prefix.
func topLevelNode(root *syntax.Root) (syntax.Node, error) {
	offset := uint32(len(root.Language().PatternPrefix()))
	var top []syntax.Node
	for _, c := range root.Node().Children() {
		if c.IsExtra() || c.StartByte() < offset {
			continue
		}
		if c.IsNamed() || c.IsError() {
			top = append(top, c)
		}
	}
	switch len(top) {
	case 0:
		return syntax.Node{}, ErrNoContent
	case 1:
		return top[0], nil
	default:
		return syntax.Node{}, ErrMultipleNodes
	}
}

// dropTerminator returns the statement body of n when n is a named node
// followed by the ";" the snippet was retried with.
func dropTerminator(n syntax.Node) (syntax.Node, bool) {
	children := patternChildren(n)
	if len(children) != 2 {
		return syntax.Node{}, false
	}
	body, semi := children[0], children[1]
	if !body.IsNamed() || semi.IsNamed() || semi.Kind() != ";" {
		return syntax.Node{}, false
	}
	return body, true
}

// MustPattern is like NewPattern but panics on error. Intended for tests and
// package-level pattern tables.
func MustPattern(src string, lang *syntax.Language) *Pattern {
	p, err := NewPattern(src, lang)
	if err != nil {
		panic(err)
	}
	return p
}

// unwrap descends through wrapper nodes that have a single child covering
// exactly the same text, so that `foo()` yields a call rather than a
// statement and matches calls in any context. An ERROR node around a single
// named node is a wrapper regardless of its span.
func unwrap(n syntax.Node) syntax.Node {
	for {
		children := patternChildren(n)
		if len(children) != 1 {
			return n
		}
		c := children[0]
		if n.IsError() {
			if !c.IsNamed() {
				return n
			}
		} else if c.StartByte() != n.StartByte() || c.EndByte() != n.EndByte() {
			return n
		}
		n = c
	}
}

// patternChildren returns the children of n that take part in a pattern:
// not extras and not zero-width nodes inserted by error recovery.
func patternChildren(n syntax.Node) []syntax.Node {
	children := n.SignificantChildren()
	out := children[:0]
	for _, c := range children {
		if !c.IsMissing() {
			out = append(out, c)
		}
	}
	return out
}

func compileNode(n syntax.Node, sigil rune) *patternNode {
	if mv, ok := parseMetaVar(n.Text(), sigil); ok {
		return &patternNode{kind: n.KindID(), meta: mv}
	}
	pn := &patternNode{kind: n.KindID()}
	children := patternChildren(n)
	if len(children) == 0 {
		pn.text = n.Text()
		return pn
	}
	pn.children = make([]*patternNode, len(children))
	for i, c := range children {
		pn.children[i] = compileNode(c, sigil)
	}
	return pn
}

// parseMetaVar recognizes $NAME, $$$NAME and $$$ (with the language's sigil).
// Names are upper case letters, digits and underscores; names starting with
// an underscore are anonymous.
func parseMetaVar(text string, sigil rune) (*metaVar, bool) {
	s := string(sigil)
	variadic := false
	var name string
	switch {
	case strings.HasPrefix(text, s+s+s):
		variadic = true
		name = text[3*len(s):]
		if name == "" {
			return &metaVar{variadic: true}, true
		}
	case strings.HasPrefix(text, s):
		name = text[len(s):]
	default:
		return nil, false
	}
	if !isMetaVarName(name) {
		return nil, false
	}
	if strings.HasPrefix(name, "_") {
		name = ""
	}
	return &metaVar{name: name, variadic: variadic}, true
}

func isMetaVarName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// Source returns the snippet the pattern was compiled from.
func (p *Pattern) Source() string { return p.src }

// Language returns the grammar the pattern was compiled for.
func (p *Pattern) Language() *syntax.Language { return p.lang }

func (p *Pattern) String() string { return p.src }

// MetaVars returns the named meta-variables of the pattern, sorted, without
// sigils. Variadic names are included.
func (p *Pattern) MetaVars() []string {
	seen := make(map[string]bool)
	var walk func(*patternNode)
	walk = func(n *patternNode) {
		if n.meta != nil && n.meta.name != "" {
			seen[n.meta.name] = true
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(p.root)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Pattern) MatchNodeWithEnv(node syntax.Node, env *MetaVarEnv) (syntax.Node, bool) {
	if node.Lang() != p.lang {
		return syntax.Node{}, false
	}
	cp := env.Checkpoint()
	if _, ok := unify(p.root, node, env); !ok {
		env.Rollback(cp)
		return syntax.Node{}, false
	}
	return node, true
}

func (p *Pattern) PotentialKinds() *bitset.BitSet {
	return kindSet(p.root.kind)
}

// MatchLen returns the byte length from the start of node to the end of the
// last candidate child the pattern was aligned with. Trailing punctuation the
// pattern did not mention, such as a statement's `;`, is not counted.
func (p *Pattern) MatchLen(node syntax.Node) (int, bool) {
	if node.Lang() != p.lang {
		return 0, false
	}
	end, ok := unify(p.root, node, NewMetaVarEnv())
	if !ok {
		return 0, false
	}
	return int(end - node.StartByte()), true
}

// unify aligns goal with cand. It returns the end byte of the last candidate
// node consumed. On failure env may hold partial bindings; callers roll back.
func unify(goal *patternNode, cand syntax.Node, env *MetaVarEnv) (uint32, bool) {
	switch {
	case goal.meta != nil:
		if !cand.IsNamed() {
			return 0, false
		}
		if goal.meta.name != "" && !env.Insert(goal.meta.name, cand) {
			return 0, false
		}
		return cand.EndByte(), true
	case len(goal.children) == 0:
		if cand.KindID() != goal.kind || cand.Text() != goal.text {
			return 0, false
		}
		return cand.EndByte(), true
	default:
		if cand.KindID() != goal.kind {
			return 0, false
		}
		return unifySeq(goal.children, cand.SignificantChildren(), env, cand.StartByte())
	}
}

// unifySeq aligns a run of sibling goals with a run of candidate siblings.
// Unnamed candidates that do not fit the current goal are skipped as
// punctuation; an unfitting named candidate fails the alignment. Unnamed
// candidates left over after the last goal are allowed.
func unifySeq(goals []*patternNode, cands []syntax.Node, env *MetaVarEnv, end uint32) (uint32, bool) {
	if len(goals) == 0 {
		for _, c := range cands {
			if c.IsNamed() {
				return 0, false
			}
		}
		return end, true
	}

	goal := goals[0]
	if goal.meta != nil && goal.meta.variadic {
		return unifyVariadic(goal.meta, goals[1:], cands, env, end)
	}

	for i, cand := range cands {
		cp := env.Checkpoint()
		if e, ok := unify(goal, cand, env); ok {
			if e, ok := unifySeq(goals[1:], cands[i+1:], env, e); ok {
				return e, true
			}
		}
		env.Rollback(cp)
		if cand.IsNamed() {
			return 0, false
		}
	}
	return 0, false
}

// unifyVariadic lets a variadic meta-variable consume the longest run of
// candidates after which the remaining goals still align, shrinking the run
// one candidate at a time. Only named nodes of the run are captured.
func unifyVariadic(mv *metaVar, rest []*patternNode, cands []syntax.Node, env *MetaVarEnv, end uint32) (uint32, bool) {
	for k := len(cands); k >= 0; k-- {
		runEnd := end
		named := make([]syntax.Node, 0, k)
		for _, c := range cands[:k] {
			if c.IsNamed() {
				named = append(named, c)
				runEnd = c.EndByte()
			}
		}

		cp := env.Checkpoint()
		if mv.name == "" || env.InsertMulti(mv.name, named) {
			if e, ok := unifySeq(rest, cands[k:], env, runEnd); ok {
				return e, true
			}
		}
		env.Rollback(cp)
	}
	return 0, false
}
