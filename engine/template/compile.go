package template

import "strings"

type segment struct {
	literal string
	path    string // empty when this segment is a literal
	isPath  bool
}

// compiled is the parsed form of a template string: literal runs
// interleaved with `{{path}}` references, kept as a flat segment list so
// repeated evaluation (e.g. in the Output Mapper, which re-evaluates every
// key against the final context) never re-parses.
type compiled struct {
	segments []segment
	// wholeValue is true when the original string is exactly one
	// `{{path}}` with nothing around it - native type preservation mode.
	wholeValue bool
}

// compileTemplate parses s into its segment list. Unbalanced braces or an
// empty path yield a KindSyntax error.
func compileTemplate(s string) (*compiled, error) {
	var segs []segment
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "{{")
		if start == -1 {
			segs = append(segs, segment{literal: s[i:]})
			break
		}
		start += i
		if start > i {
			segs = append(segs, segment{literal: s[i:start]})
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			return nil, newSyntaxErr(s, errUnbalanced)
		}
		end += start
		path := strings.TrimSpace(s[start+2 : end])
		if path == "" {
			return nil, newSyntaxErr(s, errEmptyPath)
		}
		segs = append(segs, segment{path: path, isPath: true})
		i = end + 2
	}
	c := &compiled{segments: segs}
	c.wholeValue = len(segs) == 1 && segs[0].isPath
	return c, nil
}

var (
	errUnbalanced = errString("unbalanced \"{{\" / \"}}\"")
	errEmptyPath  = errString("empty template path")
)

type errString string

func (e errString) Error() string { return string(e) }
