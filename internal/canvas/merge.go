package canvas

// MergeData merges a partial patch into existing component data without
// mutating either input. Fields absent from the patch survive untouched;
// nested objects present on both sides merge recursively; arrays and
// scalars in the patch replace the old value wholesale.
func MergeData(existing, patch map[string]any) map[string]any {
	out := cloneMap(existing)
	for key, patchValue := range patch {
		patchMap, patchIsMap := patchValue.(map[string]any)
		oldMap, oldIsMap := out[key].(map[string]any)
		if patchIsMap && oldIsMap {
			out[key] = MergeData(oldMap, patchMap)
			continue
		}
		out[key] = cloneValue(patchValue)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
