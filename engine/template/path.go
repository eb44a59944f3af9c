package template

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var bracketIndexRe = regexp.MustCompile(`\[(\d+)\]`)

// toGJSONPath rewrites `items[0].id` style bracket indexing into gjson's
// dotted-index form `items.0.id`.
func toGJSONPath(path string) string {
	return bracketIndexRe.ReplaceAllString(path, ".$1")
}

// splitHead splits "output.items[0].id" into ("output", "items[0].id").
func splitHead(path string) (head, rest string) {
	idx := strings.IndexAny(path, ".[")
	if idx == -1 {
		return path, ""
	}
	if path[idx] == '.' {
		return path[:idx], path[idx+1:]
	}
	return path[:idx], path[idx:]
}

// lookupJSON walks a gjson-compatible path against an arbitrary Go value by
// marshaling it to JSON first. It distinguishes a field that is simply
// absent (KindMissing) from an attempt to index into a scalar
// (KindTypeMismatch), since callers report those as different error kinds.
func lookupJSON(root any, path string, fullPathForErr string) (any, error) {
	if path == "" {
		return root, nil
	}
	data, err := jsonOf(root)
	if err != nil {
		return nil, newSyntaxErr(fullPathForErr, err)
	}
	gpath := toGJSONPath(path)
	result := gjson.GetBytes(data, gpath)
	if result.Exists() {
		return valueOf(result), nil
	}
	if isScalarPrefixFailure(data, gpath) {
		return nil, newTypeMismatchErr(fullPathForErr)
	}
	return nil, newMissingErr(fullPathForErr)
}

// isScalarPrefixFailure reports whether the longest existing prefix of path
// resolves to a scalar (string/number/bool/null) while path still has
// segments left to walk - i.e., the caller tried to index into a leaf.
func isScalarPrefixFailure(data []byte, path string) bool {
	parts := strings.Split(path, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		res := gjson.GetBytes(data, prefix)
		if !res.Exists() {
			continue
		}
		switch res.Type {
		case gjson.String, gjson.Number, gjson.True, gjson.False, gjson.Null:
			return true
		default:
			return false
		}
	}
	return false
}

// valueOf converts a gjson.Result into a native Go value, preserving
// numeric precision via PrecisionConverter instead of gjson's default
// float64-for-everything behavior. Objects and arrays are walked
// recursively so every nested number gets the same treatment.
func valueOf(r gjson.Result) any {
	switch r.Type {
	case gjson.Number:
		return NewPrecisionConverter().ConvertWithPrecision(r.Raw)
	case gjson.String:
		return r.Str
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	case gjson.JSON:
		if r.IsArray() {
			out := make([]any, 0)
			r.ForEach(func(_, v gjson.Result) bool {
				out = append(out, valueOf(v))
				return true
			})
			return out
		}
		if r.IsObject() {
			out := make(map[string]any)
			r.ForEach(func(k, v gjson.Result) bool {
				out[k.String()] = valueOf(v)
				return true
			})
			return out
		}
		return r.Value()
	default:
		return r.Value()
	}
}
