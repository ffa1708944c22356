package mapping

import "reflect"

// LookupField resolves a single field value out of an arbitrary record by
// name, using the same name-based resolution the engine's fallback matching
// uses. Records may be structs, pointers to structs, or string-keyed maps.
// The second return reports whether the field was found.
func LookupField(record interface{}, name string, caseSensitive bool) (interface{}, bool) {
	if record == nil || name == "" {
		return nil, false
	}
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch {
	case v.Kind() == reflect.Struct:
		f, ok := findSourceField(v.Type(), name, caseSensitive)
		if !ok {
			return nil, false
		}
		return v.FieldByIndex(f.Index).Interface(), true
	case isStringKeyedMap(v.Type()):
		mv, ok := lookupMapKey(v, name, caseSensitive)
		if !ok {
			return nil, false
		}
		return mv.Interface(), true
	default:
		return nil, false
	}
}
