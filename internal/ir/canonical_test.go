package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", Str("hello"), `{"s":"hello"}`},
		{"empty string", Str(""), `{"s":""}`},
		{"int", Int(42), `{"i":42}`},
		{"negative int", Int(-100), `{"i":-100}`},
		{"max int64", Int(9223372036854775807), `{"i":9223372036854775807}`},
		{"bool true", Bool(true), `{"b":true}`},
		{"bool false", Bool(false), `{"b":false}`},
		{"bytes", Bytes{0x00, 0x01}, `{"x":"AAE="}`},
		{"empty bytes", Bytes{}, `{"x":""}`},
		{"empty tuple", Tuple{}, `{"t":[]}`},
		{"tuple", Tuple{Str("a"), Int(1)}, `{"t":[{"s":"a"},{"i":1}]}`},
		{"empty set", NewSet(), `{"f":[]}`},
		{"set sorted and deduplicated", NewSet(Str("b"), Str("a"), Str("b")), `{"f":[{"s":"a"},{"s":"b"}]}`},
		{"set of mixed types", NewSet(Str("a"), Int(2), Bool(false)), `{"f":[{"b":false},{"i":2},{"s":"a"}]}`},
		{"nested", Tuple{Str("op"), StringSet("C"), Tuple{}}, `{"t":[{"s":"op"},{"f":[{"s":"C"}]},{"t":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	result, err := MarshalCanonical(Str("[C@@H](N)<C>&O"))
	require.NoError(t, err)
	assert.Equal(t, `{"s":"[C@@H](N)<C>&O"}`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// e + combining acute accent normalizes to a single code point
	decomposed, err := MarshalCanonical(Str("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(Str("\u00e9"))
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
	assert.Equal(t, "{\"s\":\"\u00e9\"}", string(composed))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	t.Run("literal separator characters", func(t *testing.T) {
		result, err := MarshalCanonical(Str("a\u2028b\u2029c"))
		require.NoError(t, err)
		assert.Equal(t, "{\"s\":\"a\u2028b\u2029c\"}", string(result))
	})

	t.Run("escaped backslash text is preserved", func(t *testing.T) {
		result, err := MarshalCanonical(Str(`\u2028`))
		require.NoError(t, err)
		assert.Equal(t, `{"s":"\\u2028"}`, string(result))
	})
}

func TestMarshalCanonicalControlCharacters(t *testing.T) {
	result, err := MarshalCanonical(Str("a\nb\"c"))
	require.NoError(t, err)
	assert.Equal(t, `{"s":"a\nb\"c"}`, string(result))
}

func TestMarshalCanonicalRejectsNil(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(Tuple{Str("a"), nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1]")
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	build := func() Value {
		return Tuple{Str("op"), StringSet("CCO", "C", "O"), StringSet("N")}
	}

	first := MustMarshalCanonical(build())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MustMarshalCanonical(build()))
	}
}
