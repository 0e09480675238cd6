package store

import (
	"encoding/json"
	"fmt"
)

// DefaultItemsKey is the top-level key holding the item array.
const DefaultItemsKey = "items"

// Transformer converts a stored document to items and back.
type Transformer[T any] interface {
	Decode(data []byte) ([]T, error)
	Encode(items []T) ([]byte, error)
}

// KeyTransformer reads and writes a single JSON object whose Key maps to the
// item array, e.g. {"items": [...]}. Other keys are ignored on read.
type KeyTransformer[T any] struct {
	Key string
}

func (k KeyTransformer[T]) key() string {
	if k.Key == "" {
		return DefaultItemsKey
	}
	return k.Key
}

// Decode extracts the item array. A document without the key is malformed.
func (k KeyTransformer[T]) Decode(data []byte) ([]T, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	raw, ok := doc[k.key()]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q key", ErrMalformed, k.key())
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformed, k.key(), err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Encode writes items under the key, indented for hand inspection.
func (k KeyTransformer[T]) Encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(map[string][]T{k.key(): items}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", k.key(), err)
	}
	return append(data, '\n'), nil
}
