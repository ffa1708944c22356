package mapping

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_IdentityPassthrough(t *testing.T) {
	conv := NewConverter()

	out, err := conv.Convert("hello", reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	now := time.Now()
	out, err = conv.Convert(now, reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, now, out)
}

func TestConverter_NilYieldsZeroValue(t *testing.T) {
	conv := NewConverter()

	out, err := conv.Convert(nil, reflect.TypeOf(int64(0)))
	require.NoError(t, err)
	assert.Equal(t, int64(0), out)

	out, err = conv.Convert(nil, reflect.TypeOf((*string)(nil)))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestConverter_OptionalTargetUnwrap(t *testing.T) {
	conv := NewConverter()

	out, err := conv.Convert("42", reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	p, ok := out.(*int)
	require.True(t, ok)
	require.NotNil(t, p)
	assert.Equal(t, 42, *p)
}

func TestConverter_ScalarCoercion(t *testing.T) {
	conv := NewConverter()

	tests := []struct {
		name   string
		value  interface{}
		target reflect.Type
		want   interface{}
	}{
		{"int to int64", 7, reflect.TypeOf(int64(0)), int64(7)},
		{"int to float64", 3, reflect.TypeOf(float64(0)), float64(3)},
		{"float to int truncates", 3.9, reflect.TypeOf(0), 3},
		{"string to int", "123", reflect.TypeOf(0), 123},
		{"string to float", "1.5", reflect.TypeOf(float64(0)), 1.5},
		{"string to bool", "true", reflect.TypeOf(false), true},
		{"int to string", 42, reflect.TypeOf(""), "42"},
		{"bool to string", true, reflect.TypeOf(""), "true"},
		{"bool to int", true, reflect.TypeOf(0), 1},
		{"int to bool", 2, reflect.TypeOf(false), true},
		{"zero int to bool", 0, reflect.TypeOf(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := conv.Convert(tt.value, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestConverter_DefinedStringTypes(t *testing.T) {
	conv := NewConverter()

	type status string

	out, err := conv.Convert("active", reflect.TypeOf(status("")))
	require.NoError(t, err)
	assert.Equal(t, status("active"), out)

	out, err = conv.Convert(status("archived"), reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "archived", out)

	out, err = conv.Convert(42, reflect.TypeOf(status("")))
	require.NoError(t, err)
	assert.Equal(t, status("42"), out)
}

func TestConverter_TimeParsing(t *testing.T) {
	conv := NewConverter()

	out, err := conv.Convert("2024-06-01T12:30:00Z", reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	want := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(out.(time.Time)))

	out, err = conv.Convert("2024-06-01", reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, 2024, out.(time.Time).Year())

	ts := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	out, err = conv.Convert(ts, reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T12:30:00Z", out)
}

func TestConverter_FailureKinds(t *testing.T) {
	conv := NewConverter()

	tests := []struct {
		name   string
		value  interface{}
		target reflect.Type
		kind   FailureKind
	}{
		{"bad number format", "abc", reflect.TypeOf(0), FailureFormat},
		{"bad bool format", "yes please", reflect.TypeOf(false), FailureFormat},
		{"bad time format", "not-a-date", reflect.TypeOf(time.Time{}), FailureFormat},
		{"int overflow", 300, reflect.TypeOf(int8(0)), FailureOverflow},
		{"negative to uint", -1, reflect.TypeOf(uint(0)), FailureOverflow},
		{"string overflow", "99999999999999999999", reflect.TypeOf(int64(0)), FailureOverflow},
		{"struct to int", struct{ X int }{1}, reflect.TypeOf(0), FailureCast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := conv.Convert(tt.value, tt.target)
			require.Error(t, err)
			convErr, ok := err.(*ConversionError)
			require.True(t, ok, "expected *ConversionError, got %T", err)
			assert.Equal(t, tt.kind, convErr.Kind)
			assert.NotEmpty(t, convErr.SourceType)
			assert.NotEmpty(t, convErr.TargetType)
		})
	}
}

func TestConverter_CanConvert(t *testing.T) {
	conv := NewConverter()

	assert.True(t, conv.CanConvert(reflect.TypeOf(""), reflect.TypeOf("")))
	assert.True(t, conv.CanConvert(reflect.TypeOf(0), reflect.TypeOf("")))
	assert.True(t, conv.CanConvert(reflect.TypeOf(""), reflect.TypeOf(time.Time{})))
	assert.True(t, conv.CanConvert(reflect.TypeOf(1.5), reflect.TypeOf(int8(0))))
	assert.False(t, conv.CanConvert(reflect.TypeOf(struct{ A int }{}), reflect.TypeOf(struct{ B int }{})))
	assert.False(t, conv.CanConvert(nil, reflect.TypeOf(0)))
}

func TestTypeForName(t *testing.T) {
	assert.Equal(t, reflect.TypeOf(""), TypeForName("string"))
	assert.Equal(t, reflect.TypeOf(int64(0)), TypeForName("int"))
	assert.Equal(t, reflect.TypeOf(float64(0)), TypeForName("decimal"))
	assert.Equal(t, reflect.TypeOf(false), TypeForName("boolean"))
	assert.Equal(t, reflect.TypeOf(time.Time{}), TypeForName("datetime"))
	assert.Nil(t, TypeForName("geometry"))
}
