package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	serrors "github.com/avolkov/spector/pkg/spel/errors"
)

// ObjectType represents the type of an object
type ObjectType string

const (
	INTEGER_OBJ = "INTEGER"
	FLOAT_OBJ   = "FLOAT"
	BOOLEAN_OBJ = "BOOLEAN"
	STRING_OBJ  = "STRING"
	NULL_OBJ    = "NULL"
	ARRAY_OBJ   = "ARRAY"
	DICT_OBJ    = "DICT"
	DATE_OBJ    = "DATE"
	ERROR_OBJ   = "ERROR"
)

// Object is the interface that all value types implement
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Integer represents an integer value
type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

// Float represents a decimal value
type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return strconv.FormatFloat(f.Value, 'f', -1, 64) }

// Boolean represents a boolean value
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

// String represents a string value
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

// Null represents the absence of a value. A missing document field and an
// explicit JSON null are indistinguishable to expressions.
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// Array represents an ordered list of values
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, e := range a.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(e.Inspect())
	}
	out.WriteString("]")
	return out.String()
}

// Dict represents a JSON object node of the document under evaluation
type Dict struct {
	Pairs map[string]Object
}

func (d *Dict) Type() ObjectType { return DICT_OBJ }
func (d *Dict) Inspect() string {
	keys := make([]string, 0, len(d.Pairs))
	for k := range d.Pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out bytes.Buffer
	out.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k)
		out.WriteString(": ")
		out.WriteString(d.Pairs[k].Inspect())
	}
	out.WriteString("}")
	return out.String()
}

// Get returns the value for key, or Null if absent
func (d *Dict) Get(key string) Object {
	if v, ok := d.Pairs[key]; ok {
		return v
	}
	return NULL
}

// Date represents a calendar date. The time of day is always midnight UTC;
// date values compare and subtract at day granularity.
type Date struct {
	Value time.Time
}

func (d *Date) Type() ObjectType { return DATE_OBJ }
func (d *Date) Inspect() string  { return d.Value.Format("2006-01-02") }

// Error wraps a structured evaluation error. Errors propagate outward through
// Eval like any other object; the engine unwraps them at its boundary.
type Error struct {
	Err *serrors.SpelError
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "ERROR: " + e.Err.Message }

// Singletons for the immutable values
var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func newError(code string, data map[string]any) *Error {
	return &Error{Err: serrors.New(code, data)}
}

func isError(obj Object) bool {
	if obj != nil {
		return obj.Type() == ERROR_OBJ
	}
	return false
}

// FromJSON converts a decoded JSON value (the interface{} shapes produced by
// encoding/json) into an Object tree. Whole numbers in the float64 range that
// JSON decoding produces become Integers so that schema conditions written
// with integer literals compare cleanly.
func FromJSON(v any) Object {
	switch v := v.(type) {
	case nil:
		return NULL
	case bool:
		return nativeBoolToBooleanObject(v)
	case string:
		return &String{Value: v}
	case int:
		return &Integer{Value: int64(v)}
	case int64:
		return &Integer{Value: v}
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return &Integer{Value: int64(v)}
		}
		return &Float{Value: v}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return &Integer{Value: i}
		}
		if f, err := v.Float64(); err == nil {
			return &Float{Value: f}
		}
		return &String{Value: v.String()}
	case []any:
		elements := make([]Object, len(v))
		for i, e := range v {
			elements[i] = FromJSON(e)
		}
		return &Array{Elements: elements}
	case map[string]any:
		pairs := make(map[string]Object, len(v))
		for k, e := range v {
			pairs[k] = FromJSON(e)
		}
		return &Dict{Pairs: pairs}
	case time.Time:
		return &Date{Value: v}
	default:
		return &String{Value: fmt.Sprintf("%v", v)}
	}
}

// asNumber returns the object's numeric value. The second result reports
// whether the object was numeric at all.
func asNumber(obj Object) (float64, bool) {
	switch obj := obj.(type) {
	case *Integer:
		return float64(obj.Value), true
	case *Float:
		return obj.Value, true
	default:
		return 0, false
	}
}

// asString returns the canonical string form of a scalar for dictionary
// lookups and digit checks.
func asString(obj Object) (string, bool) {
	switch obj := obj.(type) {
	case *String:
		return obj.Value, true
	case *Integer:
		return strconv.FormatInt(obj.Value, 10), true
	case *Float:
		return strconv.FormatFloat(obj.Value, 'f', -1, 64), true
	case *Boolean:
		return strconv.FormatBool(obj.Value), true
	case *Date:
		return obj.Value.Format("2006-01-02"), true
	default:
		return "", false
	}
}

func isBlankString(s string) bool {
	return strings.TrimSpace(s) == ""
}
