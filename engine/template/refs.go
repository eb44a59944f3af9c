package template

// ReferencedTasks walks v (a literal JSON value, typically a TaskRef's
// input map) and returns the set of task ids referenced via
// `{{tasks.X…}}` expressions. It is used by the Graph Planner to derive
// implicit dependencies without requiring the caller to re-implement
// template parsing.
func ReferencedTasks(v any) ([]string, error) {
	seen := make(map[string]struct{})
	if err := collectTaskRefs(v, seen); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func collectTaskRefs(v any, seen map[string]struct{}) error {
	switch t := v.(type) {
	case string:
		c, err := compileTemplate(t)
		if err != nil {
			return err
		}
		for _, seg := range c.segments {
			if !seg.isPath {
				continue
			}
			root, rest := splitHead(seg.path)
			if root != "tasks" || rest == "" {
				continue
			}
			taskID, _ := splitHead(rest)
			if taskID != "" {
				seen[taskID] = struct{}{}
			}
		}
	case map[string]any:
		for _, item := range t {
			if err := collectTaskRefs(item, seen); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range t {
			if err := collectTaskRefs(item, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
