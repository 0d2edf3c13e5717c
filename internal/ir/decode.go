package ir

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxDepth bounds the nesting of tuples and sets in a decoded payload.
const MaxDepth = 64

var (
	// ErrForbiddenType is matched by every ForbiddenTypeError.
	ErrForbiddenType = errors.New("forbidden type")

	// ErrMalformed indicates a payload that is not a canonical encoding.
	ErrMalformed = errors.New("malformed payload")
)

// ForbiddenTypeError is returned when a payload references a type tag
// outside the allow-list.
type ForbiddenTypeError struct {
	// Tag is the rejected type tag as found on the wire.
	Tag string

	// Path locates the offending value, e.g. "$[1][0]".
	Path string
}

// Error implements the error interface.
func (e *ForbiddenTypeError) Error() string {
	return fmt.Sprintf("type %q at %s is forbidden", e.Tag, e.Path)
}

// Is makes errors.Is(err, ErrForbiddenType) match.
func (e *ForbiddenTypeError) Is(target error) bool {
	return target == ErrForbiddenType
}

// IsForbiddenType returns true if err is or wraps a ForbiddenTypeError.
func IsForbiddenType(err error) bool {
	return errors.Is(err, ErrForbiddenType)
}

func malformed(path, format string, args ...any) error {
	return fmt.Errorf("%w at %s: %s", ErrMalformed, path, fmt.Sprintf(format, args...))
}

// Decode reconstructs a value from its canonical encoding.
//
// CRITICAL: This is the trust boundary. Only the tags declared in value.go
// are reconstructed; any other tag fails with ForbiddenTypeError and no
// value is returned. After decoding, the value is re-encoded and must
// match the input byte for byte, so non-canonical payloads (unsorted or
// duplicate set members, whitespace, escaped keys, null members) fail
// with ErrMalformed.
func Decode(data []byte) (Value, error) {
	v, err := decodeValue(data, "$", 0)
	if err != nil {
		return nil, err
	}

	canonical, err := MarshalCanonical(v)
	if err != nil {
		return nil, malformed("$", "%v", err)
	}
	if !bytes.Equal(canonical, data) {
		return nil, malformed("$", "payload is not in canonical form")
	}
	return v, nil
}

func decodeValue(data []byte, path string, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, malformed(path, "nesting exceeds %d levels", MaxDepth)
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, malformed(path, "expected tagged object")
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, malformed(path, "%v", err)
	}
	if len(tagged) != 1 {
		return nil, malformed(path, "tagged object must have exactly one member, got %d", len(tagged))
	}

	for tag, raw := range tagged {
		return decodeTagged(Tag(tag), raw, path, depth)
	}
	panic("unreachable")
}

// decodeTagged is the allow-list. Each case constructs exactly one of
// the sealed Value types; the default case rejects everything else.
func decodeTagged(tag Tag, raw json.RawMessage, path string, depth int) (Value, error) {
	switch tag {
	case TagString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, malformed(path, "string: %v", err)
		}
		return Str(s), nil

	case TagInt:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, malformed(path, "int: %v", err)
		}
		if strings.ContainsAny(string(n), ".eE") {
			return nil, malformed(path, "floats are forbidden: %s", n)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, malformed(path, "int out of range: %s", n)
		}
		return Int(i), nil

	case TagBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, malformed(path, "bool: %v", err)
		}
		return Bool(b), nil

	case TagBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, malformed(path, "bytes: %v", err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, malformed(path, "bytes: %v", err)
		}
		return Bytes(b), nil

	case TagTuple:
		elems, err := decodeSeq(raw, path, depth)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil

	case TagSet:
		elems, err := decodeSeq(raw, path, depth)
		if err != nil {
			return nil, err
		}
		return NewSet(elems...), nil

	default:
		return nil, &ForbiddenTypeError{Tag: string(tag), Path: path}
	}
}

func decodeSeq(raw json.RawMessage, path string, depth int) ([]Value, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(path, "sequence: %v", err)
	}

	elems := make([]Value, len(items))
	for i, item := range items {
		v, err := decodeValue(item, fmt.Sprintf("%s[%d]", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return elems, nil
}
