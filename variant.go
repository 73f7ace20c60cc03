// Package variant provides a self-describing, schema-free binary encoding
// for semi-structured values (the Variant format), plus a shredding engine
// that projects a Variant into a typed columnar row and reconstructs it
// back.
//
// # Core Features
//
//   - A compact, random-access binary encoding for JSON-like values:
//     null, boolean, integers, floats, decimals, strings, binary, UUID,
//     dates/timestamps, and nested objects/arrays.
//   - An append-only builder with automatic numeric narrowing and
//     dictionary-interned object keys.
//   - A JSON-to-Variant driver that assigns dictionary ids in source key
//     order; object fields themselves are stored sorted by key.
//   - A shredding writer/reader that projects a Variant into a typed row
//     per a host-supplied schema, leaving anything the schema doesn't
//     cover in a residual variant sub-column.
//
// # Basic Usage
//
// Building and reading a Variant:
//
//	import "github.com/shredpack/variant"
//
//	b, _ := variant.NewBuilder()
//	b.AppendString("hello")
//	v, _ := b.Result()
//
//	s, _ := v.GetString()
//
// Parsing JSON directly into a Variant:
//
//	v, _ := variant.ParseJSON([]byte(`{"a": 1, "b": [true, null]}`))
//	doc, _ := v.ToJSON(nil)
//
// # Package Structure
//
// This file provides convenient top-level wrappers around the variant
// package. For advanced usage — schema-driven shredding, custom builder
// options, the raw codec primitives — use the variant, schema, and shred
// packages directly.
package variant

import (
	vt "github.com/shredpack/variant/jsonvalue"
	core "github.com/shredpack/variant/variant"
)

// Variant is an immutable, self-describing encoded value paired with its
// key dictionary. See the variant package for its full method set.
type Variant = core.Variant

// Builder accumulates Variant value bytes incrementally. See the variant
// package for its full method set.
type Builder = core.Builder

// BuilderOption configures a Builder at construction time.
type BuilderOption = core.BuilderOption

// New wraps a (value, metadata) byte pair as a Variant.
func New(value, metadata []byte) (Variant, error) {
	return core.New(value, metadata)
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...BuilderOption) (*Builder, error) {
	return core.NewBuilder(opts...)
}

// WithAllowDuplicateKeys controls how object construction resolves two
// fields sharing a key.
func WithAllowDuplicateKeys(allow bool) BuilderOption {
	return core.WithAllowDuplicateKeys(allow)
}

// WithInitialCapacity sets a Builder's initial write buffer capacity.
func WithInitialCapacity(n int) BuilderOption {
	return core.WithInitialCapacity(n)
}

// ParseJSON parses a JSON document directly into a Variant, preserving the
// source document's object key order as dictionary assignment order.
func ParseJSON(data []byte) (Variant, error) {
	val, err := vt.Parse(data)
	if err != nil {
		return Variant{}, err
	}
	b, err := NewBuilder()
	if err != nil {
		return Variant{}, err
	}
	if err := core.BuildFromJSON(b, val); err != nil {
		return Variant{}, err
	}
	return b.Result()
}
