package schema

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid(t *testing.T, typ Type, v any) bool {
	t.Helper()
	ok, err := typ.Valid(context.Background(), NewAttribute("f", typ), v)
	require.NoError(t, err)
	return ok
}

func TestPrimitiveValidation(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		good []any
		bad  []any
	}{
		{"string", String{MinLength: 2, MaxLength: 4}, []any{"ab", "abcd"}, []any{"a", "abcde", 12, nil}},
		{"string format", String{Format: "email"}, []any{"a@b.io"}, []any{"nope"}},
		{"integer", Integer{Min: Int(0), Max: Int(10)}, []any{0, float64(10), json.Number("3"), int64(5)}, []any{-1, 11, 1.5, "3"}},
		{"decimal", Decimal{Max: Float(2.5)}, []any{2.5, -3, 1}, []any{2.6, "1.0", true}},
		{"decimal_string", DecimalString{}, []any{"12.50", "3"}, []any{12.5, "abc"}},
		{"boolean", Boolean{}, []any{true, false}, []any{"true", 0}},
		{"null", Null{}, []any{nil}, []any{"", 0}},
		{"date", Date{}, []any{"2024-02-29"}, []any{"2023-02-29", "2024-01-01T00:00:00Z"}},
		{"datetime", DateTime{}, []any{"2024-01-01T10:00:00Z", "2024-01-01T10:00:00+02:00"}, []any{"yesterday"}},
		{"email", Email{}, []any{"jo@example.com"}, []any{"jo", "jo@localhost", "Jo <jo@example.com>"}},
		{"uuid", UUID{}, []any{"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, []any{"6ba7b8109dad11d180b400c04fd430c8", 1}},
		{"one_of", OneOf{Values: []any{"a", 1}}, []any{"a", float64(1)}, []any{"b", 2}},
		{"array", Array{Of: Integer{}}, []any{[]any{}, []any{float64(1), 2}}, []any{[]any{"x"}, "x"}},
		{"hash", Hash{}, []any{map[string]any{}}, []any{[]any{}}},
		{"or", Nullable(Integer{}), []any{nil, 3}, []any{"3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range tc.good {
				assert.True(t, valid(t, tc.typ, v), "%#v should be valid", v)
			}
			for _, v := range tc.bad {
				assert.False(t, valid(t, tc.typ, v), "%#v should be invalid", v)
			}
		})
	}
}

func TestIntegerBoundsExample(t *testing.T) {
	typ := Integer{Min: Int(5), Max: Int(5)}
	v, err := typ.ExampleFor(context.Background(), NewAttribute("n", typ))
	require.NoError(t, err)
	assert.EqualValues(t, 5, v)

	_, err = Integer{Min: Int(9), Max: Int(1)}.ExampleFor(context.Background(), NewAttribute("n", typ))
	assert.ErrorIs(t, err, ErrNoExample)
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "string(email)", String{Format: "email"}.Name())
	assert.Equal(t, "array(integer)", Array{Of: Integer{}}.Name())
	assert.Equal(t, "string | null", Nullable(String{}).Name())
	assert.Equal(t, "one_of(a, 1)", OneOf{Values: []any{"a", 1}}.Name())
}

func TestSameValue(t *testing.T) {
	assert.True(t, SameValue(float64(3), 3))
	assert.True(t, SameValue("3", float64(3)))
	assert.True(t, SameValue(int64(3), "3"))
	assert.True(t, SameValue("abc", "abc"))
	assert.True(t, SameValue(nil, nil))
	assert.False(t, SameValue(nil, 0))
	assert.False(t, SameValue("a", "b"))
	assert.False(t, SameValue(true, "true"))
}

func TestStringExamplesValidate(t *testing.T) {
	cases := []String{
		{},
		{MinLength: 30},
		{MaxLength: 3},
		{MinLength: 2, MaxLength: 2},
		{Format: "email"},
		{Format: "email", MaxLength: 8},
		{Format: "email", MinLength: 40},
		{Format: "uuid"},
		{Format: "uuid", MinLength: 36, MaxLength: 36},
		{Format: "date"},
		{Format: "datetime"},
		{Format: "uri"},
		{Format: "uri", MaxLength: 16},
		{Format: "uri", MaxLength: 20},
		{Format: "url", MinLength: 50},
		{Format: "ipv4", MaxLength: 15},
	}
	for _, typ := range cases {
		for i := 0; i < 20; i++ {
			v, err := typ.ExampleFor(context.Background(), NewAttribute("f", typ))
			require.NoError(t, err, "%+v", typ)
			assert.True(t, valid(t, typ, v), "%+v produced invalid %q", typ, v)
		}
	}
}

func TestStringFormatOutOfBounds(t *testing.T) {
	for _, typ := range []String{
		{Format: "uuid", MinLength: 40},
		{Format: "uuid", MaxLength: 20},
		{Format: "date", MaxLength: 5},
		{Format: "email", MaxLength: 6},
		{Format: "uri", MaxLength: 10},
	} {
		_, err := typ.ExampleFor(context.Background(), NewAttribute("f", typ))
		assert.ErrorIs(t, err, ErrNoExample, "%+v", typ)
	}
}
