package match

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/jward/treegrep/internal/syntax"
)

// ErrUnknownKind is wrapped by KindMatcherError.
var ErrUnknownKind = errors.New("unknown node kind")

// KindMatcherError is returned when a kind name does not exist in a grammar.
type KindMatcherError struct {
	Kind     string
	Language string
}

func (e *KindMatcherError) Error() string {
	return fmt.Sprintf("kind %q is not a valid %s node kind", e.Kind, e.Language)
}

func (e *KindMatcherError) Unwrap() error { return ErrUnknownKind }

// KindMatcher matches nodes of one grammar kind.
type KindMatcher struct {
	kind syntax.KindID
	name string
}

// NewKindMatcher resolves kind in lang's naming table.
func NewKindMatcher(kind string, lang *syntax.Language) (*KindMatcher, error) {
	id, ok := lang.KindID(kind)
	if !ok {
		return nil, &KindMatcherError{Kind: kind, Language: lang.Name()}
	}
	return &KindMatcher{kind: id, name: kind}, nil
}

// Kind returns the resolved kind id.
func (k *KindMatcher) Kind() syntax.KindID { return k.kind }

func (k *KindMatcher) String() string { return "kind:" + k.name }

func (k *KindMatcher) MatchNodeWithEnv(node syntax.Node, _ *MetaVarEnv) (syntax.Node, bool) {
	if node.KindID() != k.kind {
		return syntax.Node{}, false
	}
	return node, true
}

func (k *KindMatcher) PotentialKinds() *bitset.BitSet {
	return kindSet(k.kind)
}
