// Package rule loads YAML rule documents and compiles them into matchers.
package rule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/runtime"
	"github.com/jward/treegrep/internal/syntax"
)

// Validation errors wrapped by Error.
var (
	ErrMissingID       = errors.New("id is required")
	ErrMissingLanguage = errors.New("language is required")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrEmptyRule       = errors.New("rule node has no condition")
	ErrBadSeverity     = errors.New("severity must be one of hint, info, warning, error")
	ErrDuplicateID     = errors.New("duplicate rule id")
)

// Severity ranks a finding.
type Severity string

const (
	SeverityHint    Severity = "hint"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule is one YAML rule document.
type Rule struct {
	// ID names the rule in findings. Required and unique per load.
	ID string `yaml:"id"`

	// Language is a language name or alias understood by syntax.Lookup.
	Language string `yaml:"language"`

	// Message is reported with every finding. Defaults to the ID.
	Message string `yaml:"message,omitempty"`

	// Severity defaults to warning.
	Severity Severity `yaml:"severity,omitempty"`

	// Rule is the condition tree.
	Rule Node `yaml:"rule"`

	// Filter is an inline Risor predicate evaluated per match.
	Filter string `yaml:"filter,omitempty"`

	// FilterFile names a Risor predicate script, resolved by the Runtime.
	FilterFile string `yaml:"filter_file,omitempty"`
}

// Node is one condition. Several keys in one node are conjoined.
type Node struct {
	Pattern string `yaml:"pattern,omitempty"`
	Kind    string `yaml:"kind,omitempty"`
	Regex   string `yaml:"regex,omitempty"`
	All     []Node `yaml:"all,omitempty"`
	Any     []Node `yaml:"any,omitempty"`
	Not     *Node  `yaml:"not,omitempty"`
	Has     *Node  `yaml:"has,omitempty"`
	Inside  *Node  `yaml:"inside,omitempty"`
}

// Error reports an invalid rule together with where it came from.
type Error struct {
	Path string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rule: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if e.ID != "" {
		b.WriteString(e.ID)
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Compiled is a validated rule with its matcher.
type Compiled struct {
	Rule
	Lang    *syntax.Language
	Matcher match.Matcher
	// Path is the file the rule was loaded from, if any.
	Path string
}

// Compile validates r and builds its matcher. rt is used for filters and
// may be nil when r has none.
func (r *Rule) Compile(rt *runtime.Runtime) (*Compiled, error) {
	if r.ID == "" {
		return nil, ErrMissingID
	}
	if r.Language == "" {
		return nil, ErrMissingLanguage
	}
	lang, ok := syntax.Lookup(r.Language)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownLanguage, r.Language)
	}
	switch r.Severity {
	case "":
		r.Severity = SeverityWarning
	case SeverityHint, SeverityInfo, SeverityWarning, SeverityError:
	default:
		return nil, fmt.Errorf("%w: got %q", ErrBadSeverity, r.Severity)
	}
	if r.Message == "" {
		r.Message = r.ID
	}

	m, err := r.Rule.build(lang, "rule")
	if err != nil {
		return nil, err
	}

	if r.Filter != "" || r.FilterFile != "" {
		if rt == nil {
			rt = runtime.NewRuntime("")
		}
		if r.Filter != "" {
			if m, err = rt.NewFilter(m, r.Filter, r.ID); err != nil {
				return nil, err
			}
		}
		if r.FilterFile != "" {
			if m, err = rt.NewFilterFile(m, r.FilterFile); err != nil {
				return nil, err
			}
		}
	}
	return &Compiled{Rule: *r, Lang: lang, Matcher: m}, nil
}

// build turns a condition tree into a Matcher. at locates the node in error
// messages, e.g. rule.all[1].not.
func (n *Node) build(lang *syntax.Language, at string) (match.Matcher, error) {
	var parts []match.Matcher

	if n.Pattern != "" {
		p, err := match.NewPattern(n.Pattern, lang)
		if err != nil {
			return nil, fmt.Errorf("%s.pattern: %w", at, err)
		}
		parts = append(parts, p)
	}
	if n.Kind != "" {
		k, err := match.NewKindMatcher(n.Kind, lang)
		if err != nil {
			return nil, fmt.Errorf("%s.kind: %w", at, err)
		}
		parts = append(parts, k)
	}
	if n.Regex != "" {
		re, err := match.NewRegexMatcher(n.Regex)
		if err != nil {
			return nil, fmt.Errorf("%s.regex: %w", at, err)
		}
		parts = append(parts, re)
	}
	if len(n.All) > 0 {
		ms, err := buildList(n.All, lang, at+".all")
		if err != nil {
			return nil, err
		}
		parts = append(parts, match.NewAll(ms...))
	}
	if len(n.Any) > 0 {
		ms, err := buildList(n.Any, lang, at+".any")
		if err != nil {
			return nil, err
		}
		parts = append(parts, match.NewAny(ms...))
	}
	if n.Not != nil {
		m, err := n.Not.build(lang, at+".not")
		if err != nil {
			return nil, err
		}
		parts = append(parts, match.NewNot(m))
	}
	if n.Has != nil {
		m, err := n.Has.build(lang, at+".has")
		if err != nil {
			return nil, err
		}
		parts = append(parts, match.NewHas(m))
	}
	if n.Inside != nil {
		m, err := n.Inside.build(lang, at+".inside")
		if err != nil {
			return nil, err
		}
		parts = append(parts, match.NewInside(m))
	}

	switch len(parts) {
	case 0:
		return nil, fmt.Errorf("%s: %w", at, ErrEmptyRule)
	case 1:
		return parts[0], nil
	default:
		return match.NewAll(parts...), nil
	}
}

func buildList(nodes []Node, lang *syntax.Language, at string) ([]match.Matcher, error) {
	ms := make([]match.Matcher, len(nodes))
	for i := range nodes {
		m, err := nodes[i].build(lang, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	return ms, nil
}
