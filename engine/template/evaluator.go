// Package template implements the Template Evaluator (C1): it resolves
// `{{path}}` expressions against an execution's Scope, where path is a
// dotted reference rooted at exactly one of input, tasks, or env.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
)

// Evaluator resolves template expressions. It is safe for concurrent use:
// the Scheduler calls Evaluate from many task goroutines at once, and
// Evaluate never mutates the Scope it is given (P6, template purity).
type Evaluator struct {
	cache *ristretto.Cache[string, *compiled]
}

// NewEvaluator builds an Evaluator with a compiled-template cache sized for
// about a thousand distinct expressions - workflows reuse the same handful of
// templates across every execution, so the cache hit rate is high.
func NewEvaluator() (*Evaluator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *compiled]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}
	return &Evaluator{cache: cache}, nil
}

// Evaluate resolves expr against scope. Non-string JSON values (numbers,
// booleans, objects, arrays, null) pass through unchanged - only strings can
// contain `{{…}}` substitutions.
func (e *Evaluator) Evaluate(expr any, scope *Scope) (any, error) {
	s, ok := expr.(string)
	if !ok {
		return expr, nil
	}
	c, err := e.compile(s)
	if err != nil {
		return nil, err
	}
	if c.wholeValue {
		return e.resolve(c.segments[0].path, scope)
	}
	var out string
	for _, seg := range c.segments {
		if !seg.isPath {
			out += seg.literal
			continue
		}
		v, err := e.resolve(seg.path, scope)
		if err != nil {
			return nil, err
		}
		str, err := stringify(v)
		if err != nil {
			return nil, newSyntaxErr(seg.path, err)
		}
		out += str
	}
	return out, nil
}

// EvaluateMap resolves every value in m against scope, recursing into
// nested maps/slices so a TaskRef's whole `input` block can be resolved in
// one call.
func (e *Evaluator) EvaluateMap(m map[string]any, scope *Scope) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		resolved, err := e.evaluateAny(v, scope)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

// EvaluateValue resolves an arbitrary JSON-shaped value - a literal, a
// string template, or a map/slice containing either - recursing into
// nested maps and slices. Callers outside this package that need to
// resolve a single non-string-keyed value (such as an HTTP body) use this
// instead of EvaluateMap.
func (e *Evaluator) EvaluateValue(v any, scope *Scope) (any, error) {
	return e.evaluateAny(v, scope)
}

func (e *Evaluator) evaluateAny(v any, scope *Scope) (any, error) {
	switch t := v.(type) {
	case string:
		return e.Evaluate(t, scope)
	case map[string]any:
		return e.EvaluateMap(t, scope)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			resolved, err := e.evaluateAny(item, scope)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (e *Evaluator) compile(s string) (*compiled, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(s); ok {
			return v, nil
		}
	}
	c, err := compileTemplate(s)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(s, c, 1)
	}
	return c, nil
}

// resolve walks a single `{{path}}` expression against scope. path is
// rooted at exactly one of "input", "tasks", or "env" per the grammar.
func (e *Evaluator) resolve(path string, scope *Scope) (any, error) {
	root, rest := splitHead(path)
	switch root {
	case "input":
		return lookupJSON(scope.Input, rest, path)
	case "env":
		return resolveEnv(rest, scope.Env, path)
	case "tasks":
		return resolveTask(rest, scope.Tasks, path)
	default:
		return nil, newMissingErr(path)
	}
}

func resolveEnv(rest string, env map[string]string, fullPath string) (any, error) {
	if rest == "" {
		return nil, newSyntaxErr(fullPath, errEmptyPath)
	}
	key, tail := splitHead(rest)
	if tail != "" {
		// env is a flat string map - indexing further into a value is
		// always indexing into a scalar.
		return nil, newTypeMismatchErr(fullPath)
	}
	v, ok := env[key]
	if !ok {
		return nil, newMissingErr(fullPath)
	}
	return v, nil
}

func resolveTask(rest string, tasks map[string]TaskState, fullPath string) (any, error) {
	if rest == "" {
		return nil, newSyntaxErr(fullPath, errEmptyPath)
	}
	taskID, tail := splitHead(rest)
	ts, ok := tasks[taskID]
	if !ok {
		return nil, newMissingErr(fullPath)
	}
	if tail == "" {
		if !ts.Status.IsTerminal() {
			return nil, newUnresolvedErr(fullPath)
		}
		return map[string]any{"status": string(ts.Status), "output": ts.Output}, nil
	}
	field, fieldRest := splitHead(tail)
	switch field {
	case "status":
		return string(ts.Status), nil
	case "output":
		if !ts.Status.IsTerminal() {
			return nil, newUnresolvedErr(fullPath)
		}
		return lookupJSON(ts.Output, fieldRest, fullPath)
	default:
		return nil, newMissingErr(fullPath)
	}
}

// stringify renders v for string-mode substitution: strings are emitted
// bare, nil as an empty string, everything else as compact canonical JSON.
func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return formatNumber(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
