package engine

// Subject returns a placeholder Ref standing in for "the entity this
// execution belongs to" before its identity is known. Callers embed it in
// Args/Kwargs of input messages constructed ahead of Complete — for example
// a CreateEntityRequestSent recorded as "the method created a Comment whose
// first argument is the entity running the method". Once the first
// EntityStateChanged fixes the concrete entity, every occurrence of the
// placeholder inside logged message arguments is substituted for the
// resolved Ref before structural matching runs.
func Subject() Ref {
	return Ref{Subject: true}
}

// resolveSubject walks v (recursively through nested []any and
// map[string]any values, to any depth) replacing the Subject placeholder
// with resolved wherever it appears.
func resolveSubject(v any, resolved Ref) any {
	switch t := v.(type) {
	case Ref:
		if t.Subject {
			return resolved
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = resolveSubject(e, resolved)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = resolveSubject(e, resolved)
		}
		return out
	default:
		return v
	}
}

func resolveSubjectArgs(args []any, resolved Ref) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = resolveSubject(a, resolved)
	}
	return out
}

func resolveSubjectKwargs(kwargs map[string]any, resolved Ref) map[string]any {
	if kwargs == nil {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		out[k] = resolveSubject(v, resolved)
	}
	return out
}
