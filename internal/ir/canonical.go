package ir

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical encoding of a value.
// CRITICAL: This is the ONLY serialization used for blobs and for
// content-derived identifiers.
//
// Every value is a JSON object with exactly one member, named by its
// type tag:
//
//	{"s":"CCO"}  {"i":3}  {"b":true}  {"x":"AAE="}
//	{"t":[{"s":"a"},{"i":1}]}  {"f":[{"s":"a"},{"s":"b"}]}
//
// Strings are NFC normalized and never HTML-escaped. Set members are
// written in Compare order.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
// Use only when v is known to be non-nil.
func MustMarshalCanonical(v Value) []byte {
	data, err := MarshalCanonical(v)
	if err != nil {
		panic(err)
	}
	return data
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	if v == nil {
		return fmt.Errorf("null is forbidden in canonical encoding")
	}

	buf.WriteString(`{"`)
	buf.WriteString(string(v.Tag()))
	buf.WriteString(`":`)

	switch val := v.(type) {
	case Str:
		s, err := marshalCanonicalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(s)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Bytes:
		buf.WriteByte('"')
		buf.WriteString(base64.StdEncoding.EncodeToString(val))
		buf.WriteByte('"')
	case Tuple:
		if err := writeCanonicalSeq(buf, val); err != nil {
			return err
		}
	case Set:
		if err := writeCanonicalSeq(buf, val.elems); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported type for canonical encoding: %T", v)
	}

	buf.WriteByte('}')
	return nil
}

func writeCanonicalSeq(buf *bytes.Buffer, elems []Value) error {
	buf.WriteByte('[')
	for i, elem := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, elem); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// marshalCanonicalString produces a canonical JSON string with NFC normalization.
// Only control characters, backslash and quote are escaped; <, >, & and
// U+2028/U+2029 are written literally.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes produced by
// encoding/json back to literal characters. When the backslash is itself
// escaped (\\u2028) the sequence is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		if backslashes%2 == 1 && data[i] == 'u' && i+5 <= len(data) &&
			data[i+1] == '2' && data[i+2] == '0' && data[i+3] == '2' &&
			(data[i+4] == '8' || data[i+4] == '9') {
			// drop the escaping backslash already copied
			out = out[:len(out)-1]
			if data[i+4] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 4
			backslashes = 0
			continue
		}

		if data[i] == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, data[i])
	}
	return out
}
