package treegrep

import (
	"sort"

	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/rule"
	"github.com/jward/treegrep/internal/store"
)

// Public type aliases for internal store types returned by the Engine.

type Store = store.Store
type Run = store.Run

// Rule is a compiled rule ready for the Engine.
type Rule = rule.Compiled

// Finding is one match of one rule in one file. It is plain data and stays
// valid after the parsed tree is released. Lines and columns are 1-based;
// columns count bytes.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Path     string `json:"path"`
	Language string `json:"language"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`

	Kind      string `json:"kind"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`

	// MatchLen is the length of the matched text without trailing
	// punctuation the pattern did not ask for.
	MatchLen int    `json:"match_len"`
	Text     string `json:"text"`

	Captures      map[string]string   `json:"captures,omitempty"`
	MultiCaptures map[string][]string `json:"multi_captures,omitempty"`
}

// Result is the outcome of a scan.
type Result struct {
	// Root is the scanned directory, empty for ScanFiles.
	Root string
	// Run is the store record for this scan; nil without a store.
	Run   *Run
	Files int
	// Unchanged counts files whose content hash equals the one recorded by
	// the previous run. Always 0 without a store.
	Unchanged int
	Findings  []Finding
	// Errors holds per-file failures. Other files are still scanned.
	Errors []error
}

func newFinding(r *rule.Compiled, path string, m *match.NodeMatch) Finding {
	n := m.Node()
	start, end := n.Start(), n.End()
	text := n.Text()
	f := Finding{
		RuleID:    r.ID,
		Path:      path,
		Language:  r.Lang.Name(),
		Severity:  string(r.Severity),
		Message:   r.Message,
		Kind:      n.Kind(),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
		StartLine: start.Row + 1,
		StartCol:  start.Column + 1,
		EndLine:   end.Row + 1,
		EndCol:    end.Column + 1,
		MatchLen:  len(text),
		Text:      text,
	}
	if l, ok := match.MatchLen(r.Matcher, n); ok {
		f.MatchLen = l
	}
	if caps := m.Env().Texts(); len(caps) > 0 {
		f.Captures = caps
	}
	if multi := m.Env().MultiTexts(); len(multi) > 0 {
		f.MultiCaptures = multi
	}
	return f
}

// storeMatch converts f into a store row with its captures.
func (f *Finding) storeMatch() store.Match {
	m := store.Match{
		RuleID:    f.RuleID,
		Severity:  f.Severity,
		Message:   f.Message,
		Kind:      f.Kind,
		StartByte: f.StartByte,
		EndByte:   f.EndByte,
		StartLine: f.StartLine,
		StartCol:  f.StartCol,
		EndLine:   f.EndLine,
		EndCol:    f.EndCol,
		MatchLen:  f.MatchLen,
		Text:      f.Text,
	}
	for _, name := range sortedKeys(f.Captures) {
		m.Captures = append(m.Captures, store.Capture{Name: name, Text: f.Captures[name]})
	}
	for _, name := range sortedKeys(f.MultiCaptures) {
		for i, text := range f.MultiCaptures[name] {
			m.Captures = append(m.Captures, store.Capture{Name: name, Ordinal: i, Multi: true, Text: text})
		}
	}
	return m
}

// FindingFromStore rebuilds a Finding from a stored match. Empty variadic
// captures are not stored and do not come back.
func FindingFromStore(m *store.Match) Finding {
	f := Finding{
		RuleID:    m.RuleID,
		Path:      m.Path,
		Language:  m.Language,
		Severity:  m.Severity,
		Message:   m.Message,
		Kind:      m.Kind,
		StartByte: m.StartByte,
		EndByte:   m.EndByte,
		StartLine: m.StartLine,
		StartCol:  m.StartCol,
		EndLine:   m.EndLine,
		EndCol:    m.EndCol,
		MatchLen:  m.MatchLen,
		Text:      m.Text,
	}
	for _, c := range m.Captures {
		if c.Multi {
			if f.MultiCaptures == nil {
				f.MultiCaptures = make(map[string][]string)
			}
			f.MultiCaptures[c.Name] = append(f.MultiCaptures[c.Name], c.Text)
			continue
		}
		if f.Captures == nil {
			f.Captures = make(map[string]string)
		}
		f.Captures[c.Name] = c.Text
	}
	return f
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
