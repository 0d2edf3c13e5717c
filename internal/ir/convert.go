package ir

import "fmt"

// FromGo converts a Go value to a Value.
// Supported: Value, string, int, int64, bool, []byte, []string, []any.
// Anything else, floats and nil included, fails with a
// *ForbiddenTypeError naming the Go type.
func FromGo(v any) (Value, error) {
	return fromGo(v, "$")
}

func fromGo(v any, path string) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, &ForbiddenTypeError{Tag: "null", Path: path}
	case Value:
		return val, nil
	case string:
		return Str(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case []byte:
		return Bytes(val), nil
	case []string:
		return Strings(val...), nil
	case []any:
		t := make(Tuple, len(val))
		for i, elem := range val {
			e, err := fromGo(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			t[i] = e
		}
		return t, nil
	default:
		return nil, &ForbiddenTypeError{Tag: fmt.Sprintf("%T", v), Path: path}
	}
}

// ToGo converts a Value back to plain Go values.
// Int becomes int; Tuple and Set become []any.
func ToGo(v Value) any {
	switch val := v.(type) {
	case Str:
		return string(val)
	case Int:
		return int(val)
	case Bool:
		return bool(val)
	case Bytes:
		return []byte(val)
	case Tuple:
		return toGoSeq(val)
	case Set:
		return toGoSeq(val.elems)
	default:
		return nil
	}
}

func toGoSeq(elems []Value) []any {
	out := make([]any, len(elems))
	for i, e := range elems {
		out[i] = ToGo(e)
	}
	return out
}
