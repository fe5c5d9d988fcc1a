package engine

import "reflect"

// State is the shared mutable key-value context threaded through one run.
type State map[string]any

// DeepCopy returns a copy of the state that shares no mutable structure
// with the original. Nested maps and slices are copied recursively
// regardless of element type; scalars are copied by assignment.
func (s State) DeepCopy() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = deepCopyValue(v)
	}
	return out
}

// Merge applies updates to the state in place, overwriting existing keys.
// A nil updates map is a no-op.
func (s State) Merge(updates State) {
	for k, v := range updates {
		s[k] = v
	}
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyValue(item)
		}
		return out
	case State:
		return map[string]any(val.DeepCopy())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return deepCopyReflect(v)
	}
}

// deepCopyReflect covers map and slice kinds the type switch does not
// name, such as map[string]string or []map[string]any. Other kinds are
// returned as is.
func deepCopyReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copiedElement(iter.Value()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copiedElement(rv.Index(i)))
		}
		return out.Interface()
	default:
		return v
	}
}

// copiedElement deep-copies one map or slice element, keeping the
// original when the copy cannot be stored back in the container.
func copiedElement(orig reflect.Value) reflect.Value {
	if orig.Kind() == reflect.Interface && orig.IsNil() {
		return orig
	}
	copied := reflect.ValueOf(deepCopyValue(orig.Interface()))
	if !copied.IsValid() || !copied.Type().AssignableTo(orig.Type()) {
		return orig
	}
	return copied
}
