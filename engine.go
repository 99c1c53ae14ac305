package treegrep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/treegrep/internal/log"
	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/rule"
	"github.com/jward/treegrep/internal/runtime"
	"github.com/jward/treegrep/internal/store"
	"github.com/jward/treegrep/internal/syntax"
)

// ErrNoRules is returned by New when no rule was supplied.
var ErrNoRules = errors.New("treegrep: no rules")

// Engine orchestrates a scan: file discovery, language filtering, parsing,
// matching every applicable rule, and optional persistence of findings.
type Engine struct {
	rules  []*rule.Compiled
	byLang map[string][]*rule.Compiled

	store     store.DataStore
	languages map[string]bool // nil means all languages
	logger    *zap.Logger

	// useParallel enables the worker pool in ScanFiles.
	useParallel bool
	// workers bounds the pool; 0 means one per CPU.
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will scan.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			if l, ok := syntax.Lookup(lang); ok {
				lang = l.Name()
			}
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel scanning. When true (default), ScanFiles
// uses a worker pool for parsing and matching, with a single collector
// committing findings. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the size of the worker pool. n <= 0 means one worker per
// CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithStore records every scan as a run in s.
func WithStore(s store.DataStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine for the given compiled rules.
func New(rules []*rule.Compiled, opts ...Option) (*Engine, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	e := &Engine{
		rules:       rules,
		byLang:      make(map[string][]*rule.Compiled),
		useParallel: true, // default to parallel scanning
	}
	for _, r := range rules {
		name := r.Lang.Name()
		e.byLang[name] = append(e.byLang[name], r)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Component("engine")
	}
	return e, nil
}

// LoadRules loads rule documents from a YAML file or a directory of them.
// Filter scripts named by filter_file resolve against scriptsDir.
func LoadRules(path, scriptsDir string) ([]*Rule, error) {
	return rule.LoadPath(path, runtime.NewRuntime(scriptsDir))
}

// Rules returns the rules the engine applies.
func (e *Engine) Rules() []*rule.Compiled {
	return e.rules
}

// rulesFor returns the rules applicable to a language, honoring
// WithLanguages.
func (e *Engine) rulesFor(lang string) []*rule.Compiled {
	if e.languages != nil && !e.languages[lang] {
		return nil
	}
	return e.byLang[lang]
}

// ScanSource matches every applicable rule against src, labelled with path.
// The language is taken from path's extension. Nothing is persisted.
func (e *Engine) ScanSource(ctx context.Context, path string, src []byte) ([]Finding, error) {
	lang, ok := syntax.ForFile(path)
	if !ok {
		return nil, fmt.Errorf("treegrep: %s: unsupported file type", path)
	}
	findings, err := e.matchFile(ctx, lang, path, src)
	if err != nil {
		return nil, err
	}
	sortFindings(findings)
	return findings, nil
}

// matchFile parses src and collects findings from every rule for lang.
func (e *Engine) matchFile(ctx context.Context, lang *syntax.Language, path string, src []byte) ([]Finding, error) {
	rules := e.rulesFor(lang.Name())
	if len(rules) == 0 {
		return nil, nil
	}

	root, err := lang.Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer root.Close()
	if root.HasError() {
		e.logger.Debug("file has syntax errors", zap.String("path", path))
	}

	var findings []Finding
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it := match.FindAll(r.Matcher, root.Node())
		for m, ok := it.Next(); ok; m, ok = it.Next() {
			f := newFinding(r, path, m)
			if ce := e.logger.Check(log.LevelTrace, "match"); ce != nil {
				ce.Write(zap.String("rule", r.ID), zap.String("path", path),
					zap.Int("line", f.StartLine), zap.Stringer("env", m.Env()))
			}
			findings = append(findings, f)
		}
		it.Close()
	}
	e.logger.Debug("scanned file",
		zap.String("path", path),
		zap.String("language", lang.Name()),
		zap.Int("rules", len(rules)),
		zap.Int("findings", len(findings)))
	return findings, nil
}

// skipDirs holds directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// ScanDirectory walks root and scans all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden dirs,
// node_modules, vendor, __pycache__) if git is unavailable.
func (e *Engine) ScanDirectory(ctx context.Context, root string) (*Result, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", zap.String("root", root), zap.Error(err))
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.scan(ctx, root, paths)
}

// ScanFiles scans the given files. Unsupported files are skipped.
func (e *Engine) ScanFiles(ctx context.Context, paths []string) (*Result, error) {
	return e.scan(ctx, "", paths)
}

func (e *Engine) scan(ctx context.Context, root string, paths []string) (*Result, error) {
	res := &Result{Root: root}
	if e.store != nil {
		run, err := e.store.BeginRun(root)
		if err != nil {
			return nil, fmt.Errorf("treegrep: %w", err)
		}
		res.Run = run
	}

	var scanErr error
	if e.useParallel {
		scanErr = e.scanParallel(ctx, paths, res)
	} else {
		scanErr = e.scanSerial(ctx, paths, res)
	}
	sortFindings(res.Findings)

	if res.Run != nil {
		res.Run.FileCount = res.Files
		res.Run.MatchCount = len(res.Findings)
		res.Run.ErrorCount = len(res.Errors)
		if err := e.store.FinishRun(res.Run); err != nil {
			return res, fmt.Errorf("treegrep: %w", err)
		}
	}
	e.logger.Info("scan finished",
		zap.Int("files", res.Files),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("findings", len(res.Findings)),
		zap.Int("errors", len(res.Errors)))
	return res, scanErr
}

// scanSerial scans files one at a time on the calling goroutine.
func (e *Engine) scanSerial(ctx context.Context, paths []string, res *Result) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, skip, err := e.prepareFile(path, res.Run)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		out := e.scanItem(ctx, item)
		e.collect(out, res)
	}
	return aggregate(res.Errors)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if e.wantFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.wantFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("treegrep: walk directory: %w", err)
	}
	return paths, nil
}

// wantFile reports whether path is in a language some rule targets.
func (e *Engine) wantFile(path string) bool {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return false
	}
	return len(e.rulesFor(lang)) > 0
}

// readFile reads a file for scanning.
func readFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}

// aggregate folds per-file errors into one, keeping the first as the cause.
func aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("scan had %d error(s): %w", len(errs), errs[0])
}

// sortFindings orders findings by path, then start offset, then rule id.
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StartByte != b.StartByte {
			return a.StartByte < b.StartByte
		}
		return a.RuleID < b.RuleID
	})
}
