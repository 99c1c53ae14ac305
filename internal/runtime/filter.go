package runtime

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/risor-io/risor/compiler"
	"go.uber.org/zap"

	"github.com/jward/treegrep/internal/log"
	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/syntax"
)

// Filter narrows the matches of an inner Matcher with a Risor predicate.
// A match survives when the script's result is truthy. Scripts that fail at
// run time reject the match; the failure is logged at debug level.
type Filter struct {
	rt    *Runtime
	inner match.Matcher
	code  *compiler.Code
	label string
}

// NewFilter compiles source and wraps inner with it.
func (r *Runtime) NewFilter(inner match.Matcher, source, label string) (*Filter, error) {
	code, err := r.Compile(context.Background(), source, label)
	if err != nil {
		return nil, err
	}
	return &Filter{rt: r, inner: inner, code: code, label: label}, nil
}

// NewFilterFile loads a script with LoadScript and wraps inner with it.
func (r *Runtime) NewFilterFile(inner match.Matcher, path string) (*Filter, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return r.NewFilter(inner, src, path)
}

func (f *Filter) MatchNodeWithEnv(node syntax.Node, env *match.MetaVarEnv) (syntax.Node, bool) {
	cp := env.Checkpoint()
	matched, ok := f.inner.MatchNodeWithEnv(node, env)
	if !ok {
		return syntax.Node{}, false
	}
	if !f.accept(matched, env) {
		env.Rollback(cp)
		return syntax.Node{}, false
	}
	return matched, true
}

func (f *Filter) accept(node syntax.Node, env *match.MetaVarEnv) bool {
	result, err := f.rt.EvalCode(context.Background(), f.code, f.label, match.NewNodeMatch(node, env))
	if err != nil {
		log.Component("runtime").Debug("filter failed",
			zap.String("script", f.label),
			zap.String("kind", node.Kind()),
			zap.Error(err))
		return false
	}
	return result != nil && result.IsTruthy()
}

func (f *Filter) PotentialKinds() *bitset.BitSet {
	return match.PotentialKinds(f.inner)
}

func (f *Filter) MatchLen(node syntax.Node) (int, bool) {
	return match.MatchLen(f.inner, node)
}
