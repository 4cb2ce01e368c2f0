// Package schema models the banking-API JSON Schemas this tool maintains:
// typed field trees annotated with conditional-requirement expressions and
// dictionary bindings, and a checker that validates scenario documents
// against them.
package schema

import (
	"sort"
)

// Condition is the conditional-requirement annotation of a field: when the
// expression evaluates true against the enclosing object, the field must be
// present. DQCode is the data-quality code the upstream contract assigns to
// the violation; it is opaque here.
type Condition struct {
	Expression string
	Message    string
	DQCode     int
}

// Constraints are the standard JSON Schema bounds the checker enforces on
// present values.
type Constraints struct {
	MinLength *int
	MaxLength *int
	Minimum   *float64
	Maximum   *float64
}

// Field is one node of the schema tree. Properties is set for objects,
// Items for arrays; both may be nil for scalar leaves.
type Field struct {
	Path        string
	Name        string
	Type        string
	Required    bool
	Condition   *Condition
	Dictionary  string
	Format      string
	Constraints Constraints
	Properties  map[string]*Field
	Items       *Field
}

// SortedProperties returns the child fields in name order, for deterministic
// walking and reporting.
func (f *Field) SortedProperties() []*Field {
	names := make([]string, 0, len(f.Properties))
	for name := range f.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]*Field, len(names))
	for i, name := range names {
		fields[i] = f.Properties[name]
	}
	return fields
}

// Schema is a loaded schema document: the field tree plus a flat path index.
type Schema struct {
	Title  string
	Root   *Field
	Fields map[string]*Field
}

// FieldAt returns the field at a slash-separated path like
// "client/accounts/*/status", or nil.
func (s *Schema) FieldAt(path string) *Field {
	return s.Fields[path]
}

// Conditions returns every field carrying a condition, in path order.
// The check command compiles these up front so schema-wide syntax problems
// surface before any scenario is evaluated.
func (s *Schema) Conditions() []*Field {
	var fields []*Field
	for _, f := range s.Fields {
		if f.Condition != nil {
			fields = append(fields, f)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })
	return fields
}
