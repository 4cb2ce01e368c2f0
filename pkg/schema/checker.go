package schema

import (
	"fmt"
	"strconv"

	"github.com/avolkov/spector/pkg/spel/engine"
	serrors "github.com/avolkov/spector/pkg/spel/errors"
	"github.com/avolkov/spector/pkg/spel/evaluator"
)

// ViolationKind classifies what a violation is about
type ViolationKind string

const (
	KindMissingRequired ViolationKind = "missing-required"
	KindConditional     ViolationKind = "conditionally-required"
	KindDictionary      ViolationKind = "dictionary"
	KindConstraint      ViolationKind = "constraint"
	KindNeedsReview     ViolationKind = "needs-review"
)

// Violation is one finding against a scenario document
type Violation struct {
	Path    string        `json:"path"`
	Message string        `json:"message"`
	DQCode  int           `json:"dqCode,omitempty"`
	Kind    ViolationKind `json:"kind"`
}

func (v Violation) String() string {
	if v.DQCode != 0 {
		return fmt.Sprintf("%s: %s [%s, dq %d]", v.Path, v.Message, v.Kind, v.DQCode)
	}
	return fmt.Sprintf("%s: %s [%s]", v.Path, v.Message, v.Kind)
}

// Checker validates scenario documents against a schema. Conditional
// requirements evaluate through the expression engine with the enclosing
// object chain as the ancestor stack, so parent and root scopes resolve
// the way they do in the production API.
//
// FailClosed decides what an expression evaluation error means: true records
// a needs-review violation, false (the default) logs a warning and treats
// the field as not required. Parse errors always fail the run up front via
// CompileConditions.
type Checker struct {
	schema     *Schema
	engine     *engine.Engine
	logger     engine.Logger
	FailClosed bool
}

// CheckerOption configures a Checker
type CheckerOption func(*Checker)

// WithCheckerLogger sets the warning logger
func WithCheckerLogger(logger engine.Logger) CheckerOption {
	return func(c *Checker) { c.logger = logger }
}

// FailClosed makes evaluation errors produce needs-review violations
func FailClosed() CheckerOption {
	return func(c *Checker) { c.FailClosed = true }
}

// NewChecker creates a checker for a schema
func NewChecker(s *Schema, eng *engine.Engine, opts ...CheckerOption) *Checker {
	c := &Checker{
		schema: s,
		engine: eng,
		logger: engine.NullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileConditions parses every condition in the schema and returns the
// parse failures, tagged with the field path the condition sits on. A schema
// with unparseable conditions is broken regardless of any scenario.
func (c *Checker) CompileConditions() []*serrors.SpelError {
	var errs []*serrors.SpelError
	for _, field := range c.schema.Conditions() {
		if _, err := c.engine.Compile(field.Condition.Expression); err != nil {
			errs = append(errs, err.WithSource(field.Path))
		}
	}
	return errs
}

// Check validates one decoded scenario document and returns its violations
func (c *Checker) Check(document any) []Violation {
	root := evaluator.FromJSON(document)
	ctx := evaluator.NewContext(root)

	var violations []Violation
	c.checkObject(c.schema.Root, root, ctx, "", &violations)
	return violations
}

// checkObject validates the properties of one schema object node against the
// matching document object. value may be anything the document supplied; a
// non-object document value is itself a constraint violation.
func (c *Checker) checkObject(field *Field, value evaluator.Object, ctx *evaluator.Context, path string, out *[]Violation) {
	dictObj, ok := value.(*evaluator.Dict)
	if !ok {
		*out = append(*out, Violation{
			Path:    displayPath(path),
			Message: "expected an object",
			Kind:    KindConstraint,
		})
		return
	}

	for _, child := range field.SortedProperties() {
		childValue := dictObj.Get(child.Name)
		childPath := joinPath(path, child.Name)

		if child.Required && childValue == evaluator.NULL {
			*out = append(*out, Violation{
				Path:    childPath,
				Message: child.Name + " is required",
				Kind:    KindMissingRequired,
			})
		}

		if child.Condition != nil {
			c.checkCondition(child, childValue, ctx, childPath, out)
		}

		if childValue == evaluator.NULL {
			continue
		}

		c.checkValue(child, childValue, ctx, childPath, out)
	}
}

// checkCondition evaluates a conditional requirement with this bound to the
// object owning the field.
func (c *Checker) checkCondition(field *Field, value evaluator.Object, ctx *evaluator.Context, path string, out *[]Violation) {
	required, err := c.engine.EvaluateBoolInContext(field.Condition.Expression, ctx)
	if err != nil {
		if c.FailClosed {
			*out = append(*out, Violation{
				Path:    path,
				Message: "condition failed to evaluate: " + err.Message,
				DQCode:  field.Condition.DQCode,
				Kind:    KindNeedsReview,
			})
		} else {
			c.logger.LogLine("warning:", path+":", "condition skipped:", err.Message)
		}
		return
	}

	if required && value == evaluator.NULL {
		*out = append(*out, Violation{
			Path:    path,
			Message: field.Condition.Message,
			DQCode:  field.Condition.DQCode,
			Kind:    KindConditional,
		})
	}
}

// checkValue validates a present value: dictionary membership, bounds, and
// recursion into objects and arrays.
func (c *Checker) checkValue(field *Field, value evaluator.Object, ctx *evaluator.Context, path string, out *[]Violation) {
	if field.Dictionary != "" {
		c.checkDictionary(field, value, path, out)
	}
	c.checkConstraints(field, value, path, out)

	if field.Properties != nil {
		c.checkObject(field, value, ctx.Descend(value), path, out)
		return
	}

	if field.Items != nil {
		arr, ok := value.(*evaluator.Array)
		if !ok {
			*out = append(*out, Violation{
				Path:    path,
				Message: "expected an array",
				Kind:    KindConstraint,
			})
			return
		}
		for i, elem := range arr.Elements {
			elemPath := path + "[" + strconv.Itoa(i) + "]"
			elemCtx := ctx.Descend(elem)
			if field.Items.Properties != nil {
				c.checkObject(field.Items, elem, elemCtx, elemPath, out)
			} else {
				c.checkValue(field.Items, elem, ctx, elemPath, out)
			}
		}
	}
}

func (c *Checker) checkDictionary(field *Field, value evaluator.Object, path string, out *[]Violation) {
	repr, ok := scalarString(value)
	if !ok {
		*out = append(*out, Violation{
			Path:    path,
			Message: "dictionary-bound value must be a scalar",
			Kind:    KindDictionary,
		})
		return
	}
	dicts := c.engine.Dictionaries()
	if dicts == nil || !dicts.Has(field.Dictionary) {
		c.logger.LogLine("warning:", path+":", "dictionary", field.Dictionary, "is not loaded")
		return
	}
	if !dicts.Contains(field.Dictionary, repr) {
		*out = append(*out, Violation{
			Path:    path,
			Message: fmt.Sprintf("%q is not in dictionary %s", repr, field.Dictionary),
			Kind:    KindDictionary,
		})
	}
}

func (c *Checker) checkConstraints(field *Field, value evaluator.Object, path string, out *[]Violation) {
	cons := field.Constraints

	if s, ok := value.(*evaluator.String); ok {
		length := len([]rune(s.Value))
		if cons.MinLength != nil && length < *cons.MinLength {
			*out = append(*out, Violation{
				Path:    path,
				Message: fmt.Sprintf("length %d is below the minimum of %d", length, *cons.MinLength),
				Kind:    KindConstraint,
			})
		}
		if cons.MaxLength != nil && length > *cons.MaxLength {
			*out = append(*out, Violation{
				Path:    path,
				Message: fmt.Sprintf("length %d exceeds the maximum of %d", length, *cons.MaxLength),
				Kind:    KindConstraint,
			})
		}
	}

	if n, ok := numericValue(value); ok {
		if cons.Minimum != nil && n < *cons.Minimum {
			*out = append(*out, Violation{
				Path:    path,
				Message: fmt.Sprintf("value %v is below the minimum of %v", n, *cons.Minimum),
				Kind:    KindConstraint,
			})
		}
		if cons.Maximum != nil && n > *cons.Maximum {
			*out = append(*out, Violation{
				Path:    path,
				Message: fmt.Sprintf("value %v exceeds the maximum of %v", n, *cons.Maximum),
				Kind:    KindConstraint,
			})
		}
	}
}

func scalarString(value evaluator.Object) (string, bool) {
	switch value.(type) {
	case *evaluator.String, *evaluator.Integer, *evaluator.Float, *evaluator.Boolean:
		return value.Inspect(), true
	default:
		return "", false
	}
}

func numericValue(value evaluator.Object) (float64, bool) {
	switch v := value.(type) {
	case *evaluator.Integer:
		return float64(v.Value), true
	case *evaluator.Float:
		return v.Value, true
	default:
		return 0, false
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
