package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// MetaVarChar is the sigil users write in patterns: $NAME captures one node,
// $$$NAME captures a run of sibling nodes.
const MetaVarChar = '$'

// KindID is a tree-sitter symbol id. Ids are dense and only meaningful within
// one Language.
type KindID uint16

// ErrorKind is the id tree-sitter assigns to ERROR nodes in every grammar.
const ErrorKind KindID = 0xFFFF

// Language is a tree-sitter grammar plus the lookup tables the matcher needs.
// Languages are created once per process and shared read-only.
type Language struct {
	name    string
	grammar *sitter.Language
	// expando replaces MetaVarChar in patterns for grammars where '$' cannot
	// start an identifier.
	expando rune
	// patternPrefix is prepended to pattern snippets so they parse as code,
	// e.g. "<?php" for PHP.
	patternPrefix string
	kinds         map[string]KindID
}

func newLanguage(name string, grammar *sitter.Language, expando rune) *Language {
	l := &Language{
		name:    name,
		grammar: grammar,
		expando: expando,
		kinds:   make(map[string]KindID),
	}
	count := grammar.SymbolCount()
	for i := uint32(0); i < count; i++ {
		sym := sitter.Symbol(i)
		if grammar.SymbolType(sym) != sitter.SymbolTypeRegular {
			continue
		}
		kind := grammar.SymbolName(sym)
		// The first regular symbol with a given name is the public symbol
		// tree-sitter reports for every node of that kind.
		if _, ok := l.kinds[kind]; !ok {
			l.kinds[kind] = KindID(i)
		}
	}
	l.kinds["ERROR"] = ErrorKind
	return l
}

// Name returns the canonical language name, e.g. "go" or "typescript".
func (l *Language) Name() string { return l.name }

func (l *Language) String() string { return l.name }

// Grammar returns the underlying tree-sitter language.
func (l *Language) Grammar() *sitter.Language { return l.grammar }

// ExpandoChar returns the character meta-variables are rewritten to before a
// pattern is parsed.
func (l *Language) ExpandoChar() rune { return l.expando }

// KindID resolves a named node kind. Anonymous tokens such as "(" are not
// resolvable by name.
func (l *Language) KindID(kind string) (KindID, bool) {
	id, ok := l.kinds[kind]
	return id, ok
}

// KindName returns the grammar name for a kind id.
func (l *Language) KindName(id KindID) string {
	if id == ErrorKind {
		return "ERROR"
	}
	return l.grammar.SymbolName(sitter.Symbol(id))
}

// Kinds returns every named kind of the grammar, sorted.
func (l *Language) Kinds() []string {
	kinds := make([]string, 0, len(l.kinds))
	for k := range l.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// PatternPrefix returns the text prepended to a pattern snippet before it is
// parsed. Nodes inside the prefix are not part of the pattern.
func (l *Language) PatternPrefix() string { return l.patternPrefix }

// PreProcessPattern rewrites meta-variable sigils to the expando character.
func (l *Language) PreProcessPattern(pattern string) string {
	if l.expando == MetaVarChar {
		return pattern
	}
	return strings.ReplaceAll(pattern, string(MetaVarChar), string(l.expando))
}

// Parse parses src into a tree owned by the returned Root. The caller must
// Close the Root once no Node from it is needed anymore.
func (l *Language) Parse(ctx context.Context, src []byte) (*Root, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(l.grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse %s: %w", l.name, err)
	}
	return &Root{tree: tree, src: src, lang: l}, nil
}

// ParseString is a convenience wrapper around Parse.
func (l *Language) ParseString(ctx context.Context, src string) (*Root, error) {
	return l.Parse(ctx, []byte(src))
}

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "tsx",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".java": "java",
	".php":  "php",
	".rb":   "ruby",
}

// aliases maps common short names to canonical language names.
var aliases = map[string]string{
	"golang": "go",
	"ts":     "typescript",
	"js":     "javascript",
	"jsx":    "javascript",
	"py":     "python",
	"rs":     "rust",
	"c++":    "cpp",
	"rb":     "ruby",
}

// languages is lazily initialized on first lookup via sync.Once.
var (
	languages     map[string]*Language
	languagesOnce sync.Once
)

const expando = 'µ'

func initLanguages() {
	languagesOnce.Do(func() {
		languages = map[string]*Language{
			"go":         newLanguage("go", golang.GetLanguage(), expando),
			"typescript": newLanguage("typescript", ts.GetLanguage(), MetaVarChar),
			"tsx":        newLanguage("tsx", tsx.GetLanguage(), MetaVarChar),
			"javascript": newLanguage("javascript", javascript.GetLanguage(), MetaVarChar),
			"python":     newLanguage("python", python.GetLanguage(), expando),
			"rust":       newLanguage("rust", rust.GetLanguage(), expando),
			"c":          newLanguage("c", c.GetLanguage(), expando),
			"cpp":        newLanguage("cpp", cpp.GetLanguage(), expando),
			"java":       newLanguage("java", java.GetLanguage(), MetaVarChar),
			"php":        newLanguage("php", php.GetLanguage(), expando),
			"ruby":       newLanguage("ruby", ruby.GetLanguage(), expando),
		}
		// Without the open tag PHP source is inline HTML text.
		languages["php"].patternPrefix = "<?php\n"
	})
}

// Lookup returns the Language registered under name or one of its aliases.
// Names are case insensitive.
func Lookup(name string) (*Language, bool) {
	initLanguages()
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	l, ok := languages[key]
	return l, ok
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// ForFile returns the Language for a file path based on its extension.
func ForFile(path string) (*Language, bool) {
	name, ok := LanguageForFile(path)
	if !ok {
		return nil, false
	}
	return Lookup(name)
}

// Names returns all supported canonical language names, sorted.
func Names() []string {
	initLanguages()
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
