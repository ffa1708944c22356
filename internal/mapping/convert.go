// Package mapping implements the attribute-driven object mapper: a scalar
// type converter and a descriptor-based engine that maps one record shape
// onto another using declarative field correspondences with name-based
// fallback.
package mapping

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// FailureKind classifies a conversion failure. Every failure of the
// underlying conversion machinery is normalized into one of these categories;
// low-level errors never leak to callers.
type FailureKind string

const (
	FailureCast         FailureKind = "cast"
	FailureFormat       FailureKind = "format"
	FailureOverflow     FailureKind = "overflow"
	FailureNullArgument FailureKind = "null-argument"
)

// ConversionError is the single mapping-layer error kind for failed value
// conversions. It carries the source and target type names and the failure
// category.
type ConversionError struct {
	SourceType string
	TargetType string
	Kind       FailureKind
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s (%s)", e.SourceType, e.TargetType, e.Kind)
}

func convErr(src, dst reflect.Type, kind FailureKind) *ConversionError {
	srcName := "<nil>"
	if src != nil {
		srcName = src.String()
	}
	return &ConversionError{SourceType: srcName, TargetType: dst.String(), Kind: kind}
}

var timeType = reflect.TypeOf(time.Time{})

// Converter converts single values between scalar types. It is stateless and
// safe for concurrent use.
type Converter struct{}

// NewConverter creates a Converter.
func NewConverter() *Converter { return &Converter{} }

// CanConvert is a capability probe: true when src is assignable to dst, or
// when either side belongs to the scalar set the converter knows how to
// coerce (booleans, numbers, strings, time.Time). Bulk callers probe before
// converting; Convert itself does not pre-validate.
func (c *Converter) CanConvert(src, dst reflect.Type) bool {
	if src == nil || dst == nil {
		return false
	}
	if src.AssignableTo(dst) {
		return true
	}
	return coercible(deref(src)) || coercible(deref(dst))
}

// Convert converts value to the target type.
//
//   - A nil value yields the target's zero value (typed nil for pointer-like
//     targets), never an error.
//   - A value already assignable to the target passes through unchanged.
//   - A pointer target is unwrapped to its element type before conversion
//     and the result is re-wrapped.
//   - Scalar coercion covers numeric widening/narrowing with overflow
//     checks, string parsing and formatting, boolean conversion, and
//     time.Time parsing/formatting.
func (c *Converter) Convert(value interface{}, target reflect.Type) (interface{}, error) {
	if target == nil {
		return nil, fmt.Errorf("convert: target type is nil")
	}
	if value == nil {
		return reflect.Zero(target).Interface(), nil
	}

	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(target).Interface(), nil
		}
		v = v.Elem()
	}

	if v.Type().AssignableTo(target) {
		return v.Interface(), nil
	}

	// Optional-of-T targets: convert to T, then wrap.
	if target.Kind() == reflect.Ptr {
		inner, err := c.Convert(v.Interface(), target.Elem())
		if err != nil {
			return nil, err
		}
		out := reflect.New(target.Elem())
		out.Elem().Set(reflect.ValueOf(inner))
		return out.Interface(), nil
	}

	out, err := scalarConvert(v, target)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// scalarConvert performs the actual coercion between non-assignable scalar
// values. All failures come back as *ConversionError.
func scalarConvert(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, convErr(nil, target, FailureNullArgument)
	}
	src := v.Type()

	switch {
	case isNumeric(src.Kind()) && isNumeric(target.Kind()):
		return convertNumeric(v, target)
	case src.Kind() == reflect.String:
		return parseString(v.String(), src, target)
	case target.Kind() == reflect.String:
		return formatToString(v, target)
	case src.Kind() == reflect.Bool && isNumeric(target.Kind()):
		n := int64(0)
		if v.Bool() {
			n = 1
		}
		return convertNumeric(reflect.ValueOf(n), target)
	case isNumeric(src.Kind()) && target.Kind() == reflect.Bool:
		return reflect.ValueOf(!numericIsZero(v)).Convert(target), nil
	default:
		return reflect.Value{}, convErr(src, target, FailureCast)
	}
}

func convertNumeric(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	src := v.Type()
	switch {
	case isInt(target.Kind()):
		switch {
		case isUint(src.Kind()):
			u := v.Uint()
			if u > math.MaxInt64 {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
			if reflect.Zero(target).OverflowInt(int64(u)) {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
		case isFloat(src.Kind()):
			f := v.Float()
			if f >= math.MaxInt64 || f < math.MinInt64 {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
			if reflect.Zero(target).OverflowInt(int64(f)) {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
		default:
			if reflect.Zero(target).OverflowInt(v.Int()) {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
		}
	case isUint(target.Kind()):
		switch {
		case isInt(src.Kind()):
			if v.Int() < 0 {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
			if reflect.Zero(target).OverflowUint(uint64(v.Int())) {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
		case isFloat(src.Kind()):
			f := v.Float()
			if f < 0 || f >= math.MaxUint64 {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
			if reflect.Zero(target).OverflowUint(uint64(f)) {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
		default:
			if reflect.Zero(target).OverflowUint(v.Uint()) {
				return reflect.Value{}, convErr(src, target, FailureOverflow)
			}
		}
	case isFloat(target.Kind()):
		var f float64
		switch {
		case isInt(src.Kind()):
			f = float64(v.Int())
		case isUint(src.Kind()):
			f = float64(v.Uint())
		default:
			f = v.Float()
		}
		if reflect.Zero(target).OverflowFloat(f) {
			return reflect.Value{}, convErr(src, target, FailureOverflow)
		}
	}
	return v.Convert(target), nil
}

// timeLayouts are tried in order when parsing date-time strings.
var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseString(s string, src, target reflect.Type) (reflect.Value, error) {
	switch {
	case isInt(target.Kind()):
		n, err := strconv.ParseInt(s, 10, target.Bits())
		if err != nil {
			return reflect.Value{}, stringParseErr(err, src, target)
		}
		return reflect.ValueOf(n).Convert(target), nil
	case isUint(target.Kind()):
		n, err := strconv.ParseUint(s, 10, target.Bits())
		if err != nil {
			return reflect.Value{}, stringParseErr(err, src, target)
		}
		return reflect.ValueOf(n).Convert(target), nil
	case isFloat(target.Kind()):
		f, err := strconv.ParseFloat(s, target.Bits())
		if err != nil {
			return reflect.Value{}, stringParseErr(err, src, target)
		}
		return reflect.ValueOf(f).Convert(target), nil
	case target.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, convErr(src, target, FailureFormat)
		}
		return reflect.ValueOf(b).Convert(target), nil
	case target == timeType:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return reflect.ValueOf(t), nil
			}
		}
		return reflect.Value{}, convErr(src, target, FailureFormat)
	case target.Kind() == reflect.String:
		return reflect.ValueOf(s).Convert(target), nil
	default:
		return reflect.Value{}, convErr(src, target, FailureCast)
	}
}

func stringParseErr(err error, src, target reflect.Type) *ConversionError {
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return convErr(src, target, FailureOverflow)
	}
	return convErr(src, target, FailureFormat)
}

func formatToString(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	src := v.Type()
	var s string
	switch {
	case isInt(src.Kind()):
		s = strconv.FormatInt(v.Int(), 10)
	case isUint(src.Kind()):
		s = strconv.FormatUint(v.Uint(), 10)
	case isFloat(src.Kind()):
		s = strconv.FormatFloat(v.Float(), 'g', -1, src.Bits())
	case src.Kind() == reflect.Bool:
		s = strconv.FormatBool(v.Bool())
	case src == timeType:
		s = v.Interface().(time.Time).Format(time.RFC3339)
	default:
		return reflect.Value{}, convErr(src, target, FailureCast)
	}
	return reflect.ValueOf(s).Convert(target), nil
}

// TypeForName maps a column data-type name to the Go type the converter
// coerces values into. Unknown names return nil, meaning values are stored
// as-is.
func TypeForName(name string) reflect.Type {
	switch name {
	case "string", "text":
		return reflect.TypeOf("")
	case "int", "integer", "long":
		return reflect.TypeOf(int64(0))
	case "float", "double", "number", "decimal":
		return reflect.TypeOf(float64(0))
	case "bool", "boolean":
		return reflect.TypeOf(false)
	case "datetime", "date", "timestamp":
		return timeType
	default:
		return nil
	}
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func coercible(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String:
		return true
	default:
		return isNumeric(t.Kind())
	}
}

func isNumeric(k reflect.Kind) bool { return isInt(k) || isUint(k) || isFloat(k) }

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func numericIsZero(v reflect.Value) bool {
	switch {
	case isInt(v.Kind()):
		return v.Int() == 0
	case isUint(v.Kind()):
		return v.Uint() == 0
	default:
		return v.Float() == 0
	}
}
