package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"

	"github.com/jward/treegrep/internal/match"
)

// Runtime embeds a Risor VM and evaluates filter scripts against matches.
// Scripts see the matched node and its captures as globals.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// NewRuntime creates a Runtime that resolves script paths and imports
// relative to scriptsDir. An empty scriptsDir disables imports.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{scriptsDir: scriptsDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// globalNames lists the per-match globals built by buildGlobals.
var globalNames = []string{
	"capture", "captures", "has", "kind", "line", "log", "multi_captures", "query", "text",
}

// Compile parses and compiles source once against the filter globals and
// Risor's default builtins. Undefined names are reported here. The code may
// be run concurrently by EvalCode.
func (r *Runtime) Compile(ctx context.Context, source, label string) (*compiler.Code, error) {
	ast, err := parser.Parse(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	names := make(map[string]any, len(globalNames))
	for _, name := range globalNames {
		names[name] = nil
	}
	cfg := risor.NewConfig(risor.WithGlobals(names))
	code, err := compiler.Compile(ast, cfg.CompilerOpts()...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return code, nil
}

// Eval compiles source and runs it against m.
func (r *Runtime) Eval(ctx context.Context, source, label string, m *match.NodeMatch) (object.Object, error) {
	code, err := r.Compile(ctx, source, label)
	if err != nil {
		return nil, err
	}
	return r.EvalCode(ctx, code, label, m)
}

// EvalCode runs compiled code with the globals of m and returns the script's
// result.
func (r *Runtime) EvalCode(ctx context.Context, code *compiler.Code, label string, m *match.NodeMatch) (object.Object, error) {
	globals := buildGlobals(m)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.EvalCode(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// fs.FS paths are relative and slash separated.
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the globals exposed to a filter script:
//
//	text, kind, line         the matched node
//	captures                 map of single capture name to text
//	multi_captures           map of variadic capture name to list of texts
//	capture(name)            text of one capture, or nil
//	query(sexpr)             tree-sitter query over the matched node
//	has(pattern)             whether a pattern occurs inside the matched node
//	log                      log.Debug/Info/Warn
func buildGlobals(m *match.NodeMatch) map[string]any {
	node := m.Node()
	env := m.Env()

	single := make(map[string]object.Object)
	for name, text := range env.Texts() {
		single[name] = object.NewString(text)
	}
	multi := make(map[string]object.Object)
	for name, texts := range env.MultiTexts() {
		items := make([]object.Object, len(texts))
		for i, t := range texts {
			items[i] = object.NewString(t)
		}
		multi[name] = object.NewList(items)
	}

	return map[string]any{
		"text":           object.NewString(node.Text()),
		"kind":           object.NewString(node.Kind()),
		"line":           object.NewInt(int64(node.Start().Row + 1)),
		"captures":       object.NewMap(single),
		"multi_captures": object.NewMap(multi),
		"capture":        makeCaptureFn(env),
		"query":          makeQueryFn(node),
		"has":            makeHasFn(node),
		"log":            mustProxy(&logObject{lang: node.Lang().Name()}),
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
