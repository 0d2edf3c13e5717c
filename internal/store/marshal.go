package store

import (
	"fmt"

	"github.com/dmdqy/doranet/internal/ir"
)

// marshalValue converts a metadata value to canonical TEXT for storage.
func marshalValue(v any) (string, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	data, err := ir.MarshalCanonical(iv)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue decodes stored TEXT through the trust boundary and
// converts it back to plain Go values.
func unmarshalValue(data string) (any, error) {
	iv, err := ir.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return ir.ToGo(iv), nil
}
