// Package output implements the Output Mapper (C5): it evaluates a
// workflow's output template against the final execution context, producing
// the document an ExecutionResult reports.
package output

import (
	"errors"

	"github.com/compozy/flowcore/engine/template"
)

// Map evaluates each entry of outputTemplate as a template expression
// against scope. A key whose expression fails with TemplateUnresolved -
// typically a reference to a task that never ran because of a fatal
// upstream failure - is dropped from the result rather than failing the
// whole mapping; any other template error fails the mapping outright.
func Map(
	evaluator *template.Evaluator,
	outputTemplate map[string]string,
	scope *template.Scope,
) (map[string]any, error) {
	result := make(map[string]any, len(outputTemplate))
	for key, expr := range outputTemplate {
		value, err := evaluator.Evaluate(expr, scope)
		if err != nil {
			var tmplErr *template.Error
			if errors.As(err, &tmplErr) && tmplErr.Kind == template.KindUnresolved {
				continue
			}
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}
