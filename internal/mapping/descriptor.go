package mapping

import (
	"reflect"
	"sync"
)

// descriptor is the pre-resolved mapping plan for one (source struct, target
// struct, case rule) triple: per target field, which source field supplies
// it. Built once and cached so per-call mapping cost stays predictable.
type descriptor struct {
	plans []fieldPlan
}

// fieldPlan is the resolved correspondence for one target field.
type fieldPlan struct {
	name        string // target field name
	targetIndex int
	targetType  reflect.Type

	sourceIndex []int // nil when no source field corresponds
	sourceName  string
	ignored     bool // resolved source field is marked ignored

	assignable bool // source type assignable to target type as-is
	nested     bool // target is a composite shape (recursion candidate)
}

type descKey struct {
	source        reflect.Type
	target        reflect.Type
	caseSensitive bool
}

type descriptorCache struct {
	mu    sync.RWMutex
	cache map[descKey]*descriptor
}

func newDescriptorCache() *descriptorCache {
	return &descriptorCache{cache: make(map[descKey]*descriptor)}
}

func (dc *descriptorCache) get(src, dst reflect.Type, profile *Profile, caseSensitive bool) *descriptor {
	key := descKey{source: src, target: dst, caseSensitive: caseSensitive}
	dc.mu.RLock()
	d, ok := dc.cache[key]
	dc.mu.RUnlock()
	if ok {
		return d
	}

	d = buildDescriptor(src, dst, profile, caseSensitive)
	dc.mu.Lock()
	dc.cache[key] = d
	dc.mu.Unlock()
	return d
}

// invalidateSource drops every cached descriptor derived from the given
// source type. Called when the type's profile changes.
func (dc *descriptorCache) invalidateSource(src reflect.Type) {
	dc.mu.Lock()
	for k := range dc.cache {
		if k.source == src {
			delete(dc.cache, k)
		}
	}
	dc.mu.Unlock()
}

// buildDescriptor resolves every exported target field against the source
// struct. Resolution order per target field: explicit profile rule first,
// then name-based fallback under the case rule. Ignored source fields are
// never used, even when explicitly mapped or exactly name-matched.
func buildDescriptor(src, dst reflect.Type, profile *Profile, caseSensitive bool) *descriptor {
	d := &descriptor{}
	for i := 0; i < dst.NumField(); i++ {
		tf := dst.Field(i)
		if tf.PkgPath != "" { // unexported
			continue
		}
		plan := fieldPlan{
			name:        tf.Name,
			targetIndex: i,
			targetType:  tf.Type,
			nested:      isComposite(tf.Type),
		}

		sourceName := tf.Name
		if explicit, ok := profile.sourceFor(tf.Name, caseSensitive); ok {
			sourceName = explicit
		}
		if sf, ok := findSourceField(src, sourceName, caseSensitive); ok {
			if profile.isIgnored(sf.Name, caseSensitive) {
				plan.ignored = true
			} else {
				plan.sourceIndex = sf.Index
				plan.sourceName = sf.Name
				plan.assignable = sf.Type.AssignableTo(tf.Type)
			}
		}
		d.plans = append(d.plans, plan)
	}
	return d
}

func findSourceField(src reflect.Type, name string, caseSensitive bool) (reflect.StructField, bool) {
	if caseSensitive {
		f, ok := src.FieldByName(name)
		if ok && f.PkgPath != "" {
			return reflect.StructField{}, false
		}
		return f, ok
	}
	for i := 0; i < src.NumField(); i++ {
		f := src.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if nameEqual(f.Name, name, false) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// isComposite reports whether a target type is a nested object shape rather
// than a scalar. time.Time counts as a scalar.
func isComposite(t reflect.Type) bool {
	t = deref(t)
	return t.Kind() == reflect.Struct && t != timeType
}
