package match

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jward/treegrep/internal/syntax"
)

// ErrInvalidRegex is wrapped by RegexMatcherError.
var ErrInvalidRegex = errors.New("invalid regular expression")

// RegexMatcherError is returned when an expression fails to compile.
type RegexMatcherError struct {
	Expr string
	Err  error
}

func (e *RegexMatcherError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrInvalidRegex, e.Expr, e.Err)
}

func (e *RegexMatcherError) Unwrap() []error { return []error{ErrInvalidRegex, e.Err} }

// RegexMatcher matches nodes whose entire text matches an expression.
type RegexMatcher struct {
	expr string
	re   *regexp.Regexp
}

// NewRegexMatcher compiles expr, anchored at both ends of the node text.
func NewRegexMatcher(expr string) (*RegexMatcher, error) {
	re, err := regexp.Compile(`\A(?:` + expr + `)\z`)
	if err != nil {
		// Report errors against the expression as the user wrote it.
		if _, plainErr := regexp.Compile(expr); plainErr != nil {
			err = plainErr
		}
		return nil, &RegexMatcherError{Expr: expr, Err: err}
	}
	return &RegexMatcher{expr: expr, re: re}, nil
}

func (r *RegexMatcher) String() string { return "regex:" + r.expr }

func (r *RegexMatcher) MatchNodeWithEnv(node syntax.Node, _ *MetaVarEnv) (syntax.Node, bool) {
	if !r.re.MatchString(node.Text()) {
		return syntax.Node{}, false
	}
	return node, true
}
