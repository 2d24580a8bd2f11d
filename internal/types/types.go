// Package types provides the Go representation of form schema field descriptors
// and the change sets exchanged with the persistence layer.
// Descriptors are encoded as flat JSON objects in the frappe DocField shape:
// {"fieldname": "...", "fieldtype": "...", "label": "...", ...}.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// FieldType is the type tag of a descriptor ("Data", "Link", "Section Break", ...).
type FieldType string

// Structural type tags. Every other tag denotes a data field.
const (
	TabBreak     FieldType = "Tab Break"
	SectionBreak FieldType = "Section Break"
	ColumnBreak  FieldType = "Column Break"
)

// StructuralTypes lists the marker tags in nesting order.
var StructuralTypes = []FieldType{TabBreak, SectionBreak, ColumnBreak}

// IsMarker reports whether the tag is a tab, section or column boundary.
func (t FieldType) IsMarker() bool {
	return t == TabBreak || t == SectionBreak || t == ColumnBreak
}

// Well-known property names.
const (
	PropFieldname   = "fieldname"
	PropFieldtype   = "fieldtype"
	PropLabel       = "label"
	PropHidden      = "hidden"
	PropRequired    = "reqd"
	PropReadOnly    = "read_only"
	PropDefault     = "default"
	PropCollapsible = "collapsible"
	// PropWidth is the grid width of a column marker (0..11, 0 = auto).
	PropWidth = "columns"
	// PropPosition is reserved in change sets: "move to index N".
	PropPosition = "position"
)

// Field is one descriptor of the flat schema list.
type Field struct {
	Name  string
	Type  FieldType
	Props map[string]any
}

// NewField creates a descriptor with the given properties.
func NewField(name string, typ FieldType, props map[string]any) Field {
	f := Field{Name: name, Type: typ, Props: make(map[string]any, len(props))}
	for k, v := range props {
		f.Props[k] = CloneValue(v)
	}
	return f
}

// Clone returns a deep copy of the descriptor.
func (f Field) Clone() Field {
	return NewField(f.Name, f.Type, f.Props)
}

// IsMarker reports whether the descriptor is a structural marker.
func (f Field) IsMarker() bool { return f.Type.IsMarker() }

// Get returns a property value. The identifier and type tag are exposed
// under their JSON names so callers can treat a descriptor as one map.
func (f Field) Get(prop string) (any, bool) {
	switch prop {
	case PropFieldname:
		return f.Name, true
	case PropFieldtype:
		return string(f.Type), true
	}
	v, ok := f.Props[prop]
	return v, ok
}

// Label returns the label property, falling back to the fieldname.
func (f Field) Label() string {
	if s, ok := f.Props[PropLabel].(string); ok && s != "" {
		return s
	}
	return f.Name
}

// Flag reports whether a 0/1 or boolean property is set.
func (f Field) Flag(prop string) bool {
	return Truthy(f.Props[prop])
}

// Int returns an integer property. Non-integral numbers and
// non-numeric values report ok=false.
func (f Field) Int(prop string) (int, bool) {
	v, ok := f.Props[prop]
	if !ok || v == nil {
		return 0, false
	}
	return AsInt(v)
}

// Map returns the descriptor as one flat object.
func (f Field) Map() map[string]any {
	m := make(map[string]any, len(f.Props)+2)
	for k, v := range f.Props {
		m[k] = v
	}
	m[PropFieldname] = f.Name
	m[PropFieldtype] = string(f.Type)
	return m
}

// MarshalJSON encodes the descriptor as a flat object.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Map())
}

// UnmarshalJSON decodes a flat descriptor object.
func (f *Field) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = FromMap(m)
	return nil
}

// FromMap builds a descriptor from a decoded JSON object. Missing or
// non-string identifier and type tag become empty strings.
func FromMap(m map[string]any) Field {
	f := Field{Props: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case PropFieldname:
			f.Name, _ = v.(string)
		case PropFieldtype:
			s, _ := v.(string)
			f.Type = FieldType(s)
		default:
			f.Props[k] = CloneValue(v)
		}
	}
	return f
}

// FieldList is the ordered, persisted representation of a form layout.
type FieldList []Field

// Clone returns a deep copy of the list.
func (l FieldList) Clone() FieldList {
	if l == nil {
		return nil
	}
	out := make(FieldList, len(l))
	for i, f := range l {
		out[i] = f.Clone()
	}
	return out
}

// Names returns the identifiers in list order.
func (l FieldList) Names() []string {
	out := make([]string, len(l))
	for i, f := range l {
		out[i] = f.Name
	}
	return out
}

// Index returns identifier -> position.
func (l FieldList) Index() map[string]int {
	out := make(map[string]int, len(l))
	for i, f := range l {
		out[f.Name] = i
	}
	return out
}

// Find returns the descriptor with the given identifier.
func (l FieldList) Find(name string) (Field, bool) {
	for _, f := range l {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ChangeSet maps identifier -> changed property -> new value.
// The reserved property "position" carries a field's new index.
type ChangeSet map[string]map[string]any

// Set records one property change.
func (c ChangeSet) Set(id, prop string, value any) {
	props, ok := c[id]
	if !ok {
		props = make(map[string]any)
		c[id] = props
	}
	props[prop] = value
}

// IDs returns the changed identifiers in sorted order.
func (c ChangeSet) IDs() []string {
	out := make([]string, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of individual property changes.
func (c ChangeSet) Len() int {
	n := 0
	for _, props := range c {
		n += len(props)
	}
	return n
}

// Positions extracts the "position" entries.
func (c ChangeSet) Positions() map[string]int {
	out := make(map[string]int)
	for id, props := range c {
		if v, ok := props[PropPosition]; ok {
			if n, ok := AsInt(v); ok {
				out[id] = n
			}
		}
	}
	return out
}

// Commit is one persisted change set.
type Commit struct {
	ID          string    `json:"id"`
	Doctype     string    `json:"doctype"`
	ChangeCount int       `json:"change_count"`
	Changes     ChangeSet `json:"changes"`
	CommittedAt time.Time `json:"committed_at"`
}

// ── Value helpers ───────────────────────────────────────────────────────────

// AsInt converts JSON-ish numeric values to int.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		if float32(math.Trunc(float64(n))) != n {
			return 0, false
		}
		return int(n), true
	case float64:
		if math.Trunc(n) != n {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// Truthy interprets frappe-style check values (1/0, true/false).
func Truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "" && b != "0"
	case nil:
		return false
	}
	if n, ok := AsInt(v); ok {
		return n != 0
	}
	return false
}

// IsEmpty reports whether a value counts as unset in a normalized descriptor.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case []any:
		return len(x) == 0
	}
	if n, ok := AsInt(v); ok {
		return n == 0
	}
	return false
}

// ValuesEqual compares property values, treating numerically equal
// ints and floats as the same value. Booleans compare as check values,
// so true equals 1.
func ValuesEqual(a, b any) bool {
	a, b = checkValue(a), checkValue(b)
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func checkValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// CloneValue deep-copies JSON-shaped values (maps, slices, scalars).
func CloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// FormatValue renders a property value for messages.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
