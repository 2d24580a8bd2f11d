package doctype

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/matthewbaird/formlayout/internal/suggest"
	"github.com/matthewbaird/formlayout/internal/types"
)

//go:embed field.cue
var fieldSchema string

// Report is the outcome of validating a submitted field list.
type Report struct {
	Valid      bool     `json:"valid"`
	FieldCount int      `json:"field_count"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Summary joins the report's errors, or returns "" for a valid report.
func (r Report) Summary() string {
	return strings.Join(r.Errors, "; ")
}

// Validator checks descriptor lists against the field schema.
type Validator struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// NewValidator compiles the embedded field schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(fieldSchema, cue.Filename("field.cue"))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling field schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath("#Field"))
	if def.Err() != nil {
		return nil, fmt.Errorf("field schema has no #Field: %w", def.Err())
	}
	return &Validator{ctx: ctx, def: def}, nil
}

// ValidateJSON decodes a JSON array of descriptor objects and validates
// it. When base is non-nil every base fieldname must still be present.
func (v *Validator) ValidateJSON(data []byte, base types.FieldList) Report {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{Errors: []string{fmt.Sprintf("invalid JSON syntax: %v", err)}}
	}
	items, ok := raw.([]any)
	if !ok {
		return Report{Errors: []string{"JSON must be an array of field objects"}}
	}

	objects := make([]map[string]any, len(items))
	for i, item := range items {
		objects[i], _ = item.(map[string]any)
	}
	return v.validate(objects, base)
}

// Validate checks an already decoded list.
func (v *Validator) Validate(list types.FieldList, base types.FieldList) Report {
	objects := make([]map[string]any, len(list))
	for i, f := range list {
		objects[i] = f.Map()
	}
	return v.validate(objects, base)
}

func (v *Validator) validate(objects []map[string]any, base types.FieldList) Report {
	r := Report{FieldCount: len(objects)}
	seen := make(map[string]int, len(objects))

	for i, m := range objects {
		if m == nil {
			r.Errors = append(r.Errors, fmt.Sprintf("field %d: not an object", i))
			continue
		}
		name, _ := m[types.PropFieldname].(string)
		if name == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("field %d: missing 'fieldname'", i))
			continue
		}
		ft, _ := m[types.PropFieldtype].(string)
		if ft == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("field %d (%s): missing 'fieldtype'", i, name))
			continue
		}
		if prev, dup := seen[name]; dup {
			r.Errors = append(r.Errors, fmt.Sprintf("field %d (%s): duplicate fieldname, first used by field %d", i, name, prev))
		} else {
			seen[name] = i
		}
		for _, msg := range v.checkShape(m) {
			r.Errors = append(r.Errors, fmt.Sprintf("field %d (%s): %s", i, name, msg))
		}
		if w, ok := m[types.PropWidth]; ok {
			if _, whole := types.AsInt(w); !whole {
				r.Errors = append(r.Errors, fmt.Sprintf("field %d (%s): columns must be a whole number", i, name))
			}
		}
		if hint := markerHint(types.FieldType(ft)); hint != "" {
			r.Warnings = append(r.Warnings, fmt.Sprintf("field %d (%s): fieldtype %q is not a layout marker, %s", i, name, ft, hint))
		}
	}

	if base != nil {
		var deleted []string
		for _, f := range base {
			if _, ok := seen[f.Name]; !ok {
				deleted = append(deleted, f.Name)
			}
		}
		if len(deleted) > 0 {
			sort.Strings(deleted)
			r.Errors = append(r.Errors, fmt.Sprintf(
				"cannot delete core fields: %s. To hide them, set 'hidden': 1 instead", strings.Join(deleted, ", ")))
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func (v *Validator) checkShape(m map[string]any) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.def.Unify(v.ctx.Encode(m))
	err := val.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

// markerHint suggests a structural tag for a fieldtype that is a near
// miss of one, such as "Section break".
func markerHint(ft types.FieldType) string {
	if ft.IsMarker() {
		return ""
	}
	names := make([]string, len(types.StructuralTypes))
	for i, t := range types.StructuralTypes {
		names[i] = string(t)
	}
	return suggest.From(string(ft), names, 2)
}
