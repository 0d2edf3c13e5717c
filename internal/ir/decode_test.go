package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	original := Tuple{
		Str("[C:1]=[O:2]>>[C:1][O:2]"),
		StringSet("CCO", "C"),
		Tuple{Bytes{0x01, 0x02, 0x03}, Bool(true)},
		Int(-7),
		NewSet(),
	}

	data, err := MarshalCanonical(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(original, decoded, cmp.AllowUnexported(Set{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("decoded value mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, Equal(original, decoded))
}

func TestDecodeForbiddenTypes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		tag     string
		path    string
	}{
		{"unknown top-level tag", `{"o":{"s":"x"}}`, "o", "$"},
		{"object constructor", `{"builtins.object":[]}`, "builtins.object", "$"},
		{"nested in tuple", `{"t":[{"s":"a"},{"os.system":{"s":"rm"}}]}`, "os.system", "$[1]"},
		{"nested in set", `{"f":[{"t":[{"py/reduce":[]}]}]}`, "py/reduce", "$[0][0]"},
		{"float tag", `{"d":1.5}`, "d", "$"},
		{"null tag", `{"n":{}}`, "n", "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.Nil(t, v, "forbidden payload must never yield a value")

			assert.True(t, errors.Is(err, ErrForbiddenType))
			assert.True(t, IsForbiddenType(err))
			assert.False(t, errors.Is(err, ErrMalformed))

			var fe *ForbiddenTypeError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.tag, fe.Tag)
			assert.Equal(t, tt.path, fe.Path)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ``},
		{"null", `null`},
		{"untagged string", `"s"`},
		{"untagged array", `[{"s":"a"}]`},
		{"no members", `{}`},
		{"two members", `{"s":"a","i":1}`},
		{"duplicate member", `{"s":"a","s":"b"}`},
		{"whitespace", `{"s": "a"}`},
		{"trailing data", `{"s":"a"}x`},
		{"unsorted set", `{"f":[{"s":"b"},{"s":"a"}]}`},
		{"duplicate set members", `{"f":[{"s":"a"},{"s":"a"}]}`},
		{"float", `{"i":1.5}`},
		{"exponent", `{"i":1e3}`},
		{"quoted int", `{"i":"1"}`},
		{"int out of range", `{"i":99999999999999999999}`},
		{"null string", `{"s":null}`},
		{"null tuple", `{"t":null}`},
		{"wrong payload type", `{"b":"true"}`},
		{"bad base64", `{"x":"!!"}`},
		{"escaped tag", `{"\u0073":"a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode([]byte(tt.payload))
			require.Error(t, err)
			assert.Nil(t, v)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	var v Value = Str("core")
	for i := 0; i < MaxDepth+5; i++ {
		v = Tuple{v}
	}

	_, err := Decode(MustMarshalCanonical(v))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), "nesting")
}

func TestDecodeAcceptsEveryAllowedTag(t *testing.T) {
	values := []Value{
		Str("CCO"),
		Int(3),
		Bool(false),
		Bytes("template"),
		Tuple{Str("a")},
		StringSet("a", "b"),
	}

	for _, want := range values {
		t.Run(string(want.Tag()), func(t *testing.T) {
			got, err := Decode(MustMarshalCanonical(want))
			require.NoError(t, err)
			assert.Equal(t, want.Tag(), got.Tag())
			assert.True(t, Equal(want, got))
		})
	}
}
