package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/jward/treegrep/internal/log"
	"github.com/jward/treegrep/internal/match"
	"github.com/jward/treegrep/internal/syntax"
)

// makeCaptureFn creates the "capture" host function.
//
// capture(name) → string or nil
func makeCaptureFn(env *match.MetaVarEnv) *object.Builtin {
	return object.NewBuiltin("capture", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("capture", 1, len(args))
		}

		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("capture: name must be a string, got %s", args[0].Type())
		}

		n, found := env.Get(name.Value())
		if !found {
			return object.Nil
		}
		return object.NewString(n.Text())
	})
}

// makeQueryFn creates the "query" host function. The query runs over the
// matched node only.
//
// query(pattern) → []map[string]string
//
// Each map has capture names as keys and captured source text as values.
func makeQueryFn(node syntax.Node) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("query", 1, len(args))
		}

		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}

		src := node.Root().Source()
		q, err := sitter.NewQuery([]byte(patternStr.Value()), node.Lang().Grammar())
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node.Sitter())

		results := []object.Object{}
		for {
			qm, ok := cursor.NextMatch()
			if !ok {
				break
			}
			qm = cursor.FilterPredicates(qm, src)

			matchMap := make(map[string]object.Object)
			for _, capture := range qm.Captures {
				name := q.CaptureNameForId(capture.Index)
				matchMap[name] = object.NewString(capture.Node.Content(src))
			}
			results = append(results, object.NewMap(matchMap))
		}
		return object.NewList(results)
	})
}

// makeHasFn creates the "has" host function.
//
// has(pattern) → bool
//
// The pattern is compiled for the matched node's language; a pattern that
// does not compile is an error.
func makeHasFn(node syntax.Node) *object.Builtin {
	return object.NewBuiltin("has", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("has", 1, len(args))
		}

		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("has: pattern must be a string, got %s", args[0].Type())
		}

		p, err := match.NewPattern(patternStr.Value(), node.Lang())
		if err != nil {
			return object.Errorf("has: %v", err)
		}
		_, found := match.FindNode(p, node)
		return object.NewBool(found)
	})
}

// logObject provides log.Debug/Info/Warn methods for Risor scripts.
type logObject struct {
	lang string
}

func (l *logObject) Debug(msg string) {
	log.Component("script").Debug(msg, zap.String("lang", l.lang))
}

func (l *logObject) Info(msg string) {
	log.Component("script").Info(msg, zap.String("lang", l.lang))
}

func (l *logObject) Warn(msg string) {
	log.Component("script").Warn(msg, zap.String("lang", l.lang))
}
