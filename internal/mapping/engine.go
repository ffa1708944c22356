package mapping

import (
	"fmt"
	"reflect"
	"sync"
)

// Mapper maps instances of one record shape onto freshly constructed
// instances of another. Profiles are registered per source shape; unmapped
// shapes fall back to pure name-based matching. A Mapper is safe for
// concurrent use.
type Mapper struct {
	conv        *Converter
	descriptors *descriptorCache

	mu       sync.RWMutex
	profiles map[reflect.Type]*Profile
}

// NewMapper creates a Mapper with an empty profile registry.
func NewMapper() *Mapper {
	return &Mapper{
		conv:        NewConverter(),
		descriptors: newDescriptorCache(),
		profiles:    make(map[reflect.Type]*Profile),
	}
}

// RegisterProfile binds a profile to the source shape's type. Registration
// is the explicit builder step: descriptors derived from the profile are
// built once per shape pair and reused across calls.
func (m *Mapper) RegisterProfile(source interface{}, p *Profile) {
	t := deref(reflect.TypeOf(source))
	m.mu.Lock()
	m.profiles[t] = p
	m.mu.Unlock()
	m.descriptors.invalidateSource(t)
}

func (m *Mapper) profileFor(t reflect.Type) *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[t]
}

// Map maps source onto target, which must be a non-nil pointer to a struct.
// The returned Result carries accumulated errors and warnings; the returned
// error is non-nil only for structural misuse or, with cfg.ThrowOnError set,
// for the first conversion failure.
func (m *Mapper) Map(source, target interface{}, cfg Config) (*Result, error) {
	res := &Result{Value: target}

	tv := reflect.ValueOf(target)
	if !tv.IsValid() || tv.Kind() != reflect.Ptr || tv.IsNil() || tv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("map: target must be a non-nil pointer to a struct")
	}

	sv := reflect.ValueOf(source)
	if !sv.IsValid() {
		return nil, fmt.Errorf("map: source is nil")
	}
	for sv.Kind() == reflect.Ptr || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil, fmt.Errorf("map: source is nil")
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct && !isStringKeyedMap(sv.Type()) {
		return nil, fmt.Errorf("map: source must be a struct or a string-keyed map, got %s", sv.Type())
	}

	if err := m.mapInto(sv, tv.Elem(), cfg, 0, res, ""); err != nil {
		res.finish()
		return res, err
	}
	return res.finish(), nil
}

// mapInto maps one source record onto an addressable target struct value,
// accumulating into res. It returns a non-nil error only in throwing mode.
func (m *Mapper) mapInto(src, dst reflect.Value, cfg Config, depth int, res *Result, prefix string) error {
	if src.Kind() == reflect.Struct {
		return m.mapFromStruct(src, dst, cfg, depth, res, prefix)
	}
	return m.mapFromMap(src, dst, cfg, depth, res, prefix)
}

func (m *Mapper) mapFromStruct(src, dst reflect.Value, cfg Config, depth int, res *Result, prefix string) error {
	profile := m.profileFor(src.Type())
	desc := m.descriptors.get(src.Type(), dst.Type(), profile, cfg.CaseSensitive)

	for _, plan := range desc.plans {
		if plan.ignored {
			continue
		}
		if plan.sourceIndex == nil {
			if !cfg.IgnoreUnmapped {
				res.addWarning(fmt.Sprintf("no source field mapped to target field %s", prefix+plan.name))
			}
			continue
		}
		value := src.FieldByIndex(plan.sourceIndex)
		if err := m.assignField(value, dst.Field(plan.targetIndex), plan, cfg, depth, res, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) mapFromMap(src, dst reflect.Value, cfg Config, depth int, res *Result, prefix string) error {
	profile := m.profileFor(src.Type())

	for i := 0; i < dst.NumField(); i++ {
		tf := dst.Type().Field(i)
		if tf.PkgPath != "" {
			continue
		}
		plan := fieldPlan{
			name:        tf.Name,
			targetIndex: i,
			targetType:  tf.Type,
			nested:      isComposite(tf.Type),
		}

		keyName := tf.Name
		if explicit, ok := profile.sourceFor(tf.Name, cfg.CaseSensitive); ok {
			keyName = explicit
		}
		value, found := lookupMapKey(src, keyName, cfg.CaseSensitive)
		if !found {
			if !cfg.IgnoreUnmapped {
				res.addWarning(fmt.Sprintf("no source field mapped to target field %s", prefix+tf.Name))
			}
			continue
		}
		if profile.isIgnored(keyName, cfg.CaseSensitive) {
			continue
		}
		if err := m.assignField(value, dst.Field(i), plan, cfg, depth, res, prefix); err != nil {
			return err
		}
	}
	return nil
}

// assignField applies steps 4–8 of the per-field algorithm: null handling,
// direct copy, nested recursion, and converter delegation.
func (m *Mapper) assignField(value, target reflect.Value, plan fieldPlan, cfg Config, depth int, res *Result, prefix string) error {
	name := prefix + plan.name

	// Unwrap interface values (map entries) to their dynamic type.
	for value.Kind() == reflect.Interface && !value.IsNil() {
		value = value.Elem()
	}

	if valueIsNil(value) {
		if cfg.MapNullValues {
			target.Set(reflect.Zero(target.Type()))
		}
		return nil
	}

	if value.Type().AssignableTo(target.Type()) {
		target.Set(value)
		if !value.IsZero() {
			res.MappedFieldCount++
		}
		return nil
	}

	if plan.nested && isRecordValue(value) {
		if depth+1 > cfg.maxDepth() {
			res.addError(fmt.Sprintf("field %s: maximum nesting depth exceeded (%d)", name, cfg.maxDepth()))
			return nil
		}
		inner := value
		for inner.Kind() == reflect.Ptr {
			inner = inner.Elem()
		}
		if target.Kind() == reflect.Ptr {
			p := reflect.New(target.Type().Elem())
			err := m.mapInto(inner, p.Elem(), cfg, depth+1, res, name+".")
			target.Set(p)
			return err
		}
		return m.mapInto(inner, target, cfg, depth+1, res, name+".")
	}

	if !m.conv.CanConvert(value.Type(), target.Type()) {
		return m.recordConversionFailure(name, convErr(value.Type(), target.Type(), FailureCast), cfg, res)
	}
	converted, err := m.conv.Convert(value.Interface(), target.Type())
	if err != nil {
		return m.recordConversionFailure(name, err, cfg, res)
	}
	cv := reflect.ValueOf(converted)
	if !cv.IsValid() {
		cv = reflect.Zero(target.Type())
	}
	target.Set(cv)
	if !cv.IsZero() {
		res.MappedFieldCount++
	}
	return nil
}

func (m *Mapper) recordConversionFailure(field string, err error, cfg Config, res *Result) error {
	res.addError(fmt.Sprintf("field %s: %v", field, err))
	if cfg.ThrowOnError {
		return fmt.Errorf("field %s: %w", field, err)
	}
	return nil
}

func lookupMapKey(src reflect.Value, name string, caseSensitive bool) (reflect.Value, bool) {
	if caseSensitive {
		// The key type may be a defined string type.
		key := reflect.ValueOf(name).Convert(src.Type().Key())
		v := src.MapIndex(key)
		return v, v.IsValid()
	}
	for _, k := range src.MapKeys() {
		if nameEqual(k.String(), name, false) {
			return src.MapIndex(k), true
		}
	}
	return reflect.Value{}, false
}

func isStringKeyedMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String
}

// isRecordValue reports whether a source value can itself be mapped as a
// nested record.
func isRecordValue(v reflect.Value) bool {
	t := deref(v.Type())
	return (t.Kind() == reflect.Struct && t != timeType) || isStringKeyedMap(t)
}

func valueIsNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
