// Package store persists doctype field lists and the property overrides
// written by committed layout edits. Base fields are never rewritten by a
// commit: each changed property becomes an override keyed by
// (doctype, field, property), and loading a doctype overlays the overrides
// on the base list.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/types"
)

// ErrNotFound is returned for a doctype with no base fields.
var ErrNotFound = errors.New("doctype not found")

// Store is the Load/Persist collaborator of an editing session plus the
// bookkeeping the service exposes around it.
type Store interface {
	layout.Loader
	layout.Persister

	// ImportBase replaces the base field list of a doctype.
	ImportBase(ctx context.Context, doctype string, list types.FieldList) error

	// History returns the most recent commits first. limit <= 0 means all.
	History(ctx context.Context, doctype string, limit int) ([]types.Commit, error)

	// Doctypes lists the doctypes with base fields, sorted by name.
	Doctypes(ctx context.Context) ([]string, error)
}

// Property types of an override, inferred from the value.
const (
	PropertyCheck = "Check"
	PropertyInt   = "Int"
	PropertyFloat = "Float"
	PropertyData  = "Data"
)

// Override is one stored property override.
type Override struct {
	Field        string
	Property     string
	Value        any
	PropertyType string
}

// PropertyType infers the override type of a value: booleans and 0/1 are
// checks, other whole numbers ints, other numbers floats, the rest data.
func PropertyType(v any) string {
	if _, ok := v.(bool); ok {
		return PropertyCheck
	}
	if n, ok := types.AsInt(v); ok {
		if n == 0 || n == 1 {
			return PropertyCheck
		}
		return PropertyInt
	}
	switch v.(type) {
	case float32, float64:
		return PropertyFloat
	}
	return PropertyData
}

// encodeValue serializes an override value for storage.
func encodeValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding override value: %w", err)
	}
	return string(b), nil
}

// decodeValue restores an override value, turning whole numbers of the
// Check and Int types back into ints.
func decodeValue(raw, propertyType string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decoding override value: %w", err)
	}
	if propertyType == PropertyCheck || propertyType == PropertyInt {
		if n, ok := types.AsInt(v); ok {
			return n, nil
		}
	}
	return v, nil
}

// overrides flattens a change set into override rows in a stable order.
func overrides(cs types.ChangeSet) []Override {
	var out []Override
	for _, id := range cs.IDs() {
		props := make([]string, 0, len(cs[id]))
		for p := range cs[id] {
			props = append(props, p)
		}
		sort.Strings(props)
		for _, p := range props {
			v := cs[id][p]
			out = append(out, Override{Field: id, Property: p, Value: v, PropertyType: PropertyType(v)})
		}
	}
	return out
}

// Overlay applies stored overrides to a base list.
func Overlay(base types.FieldList, rows []Override) types.FieldList {
	cs := make(types.ChangeSet)
	for _, o := range rows {
		cs.Set(o.Field, o.Property, o.Value)
	}
	return layout.Apply(base, cs)
}
