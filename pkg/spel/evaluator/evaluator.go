// Package evaluator walks a parsed condition AST against a document context
// and produces a value object. Errors are ordinary objects that propagate
// outward, so a failed subtree aborts exactly one evaluation call and the
// caller decides what a failure means for the document check.
package evaluator

import (
	"strconv"
	"time"

	"github.com/avolkov/spector/pkg/spel/ast"
)

// maxDepth bounds evaluation recursion. The parser already bounds expression
// nesting; this additionally covers data-driven recursion through collection
// predicates over deeply nested documents.
const maxDepth = 500

// DictionaryService resolves isDictionaryValue lookups. Implementations live
// in pkg/dict; the evaluator only needs membership tests.
type DictionaryService interface {
	Has(name string) bool
	Contains(name, value string) bool
}

// Env holds the evaluation environment shared by every node of one
// evaluation call: the dictionary service, the clock, and the depth counter.
// An Env must not be shared between concurrent evaluations.
type Env struct {
	Dicts DictionaryService
	Now   func() time.Time

	depth int
}

// NewEnv creates an environment with the real clock and no dictionaries.
func NewEnv() *Env {
	return &Env{Now: time.Now}
}

// Eval evaluates an expression node in the given context
func Eval(node ast.Expression, ctx *Context, env *Env) Object {
	env.depth++
	defer func() { env.depth-- }()
	if env.depth > maxDepth {
		return newError("EVAL-0005", map[string]any{"Max": maxDepth})
	}

	switch node := node.(type) {
	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}
	case *ast.FloatLiteral:
		return &Float{Value: node.Value}
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.BooleanLiteral:
		return nativeBoolToBooleanObject(node.Value)
	case *ast.NullLiteral:
		return NULL
	case *ast.ArrayLiteral:
		return evalArrayLiteral(node, ctx, env)
	case *ast.FieldRef:
		return evalFieldRef(node, ctx)
	case *ast.UnaryOp:
		return evalUnaryOp(node, ctx, env)
	case *ast.BinaryOp:
		return evalBinaryOp(node, ctx, env)
	case *ast.NaryOp:
		return evalNaryOp(node, ctx, env)
	case *ast.CollectionPredicate:
		return evalCollectionPredicate(node, ctx, env)
	case *ast.MethodCall:
		return evalMethodCall(node, ctx, env)
	default:
		return newError("EVAL-0001", map[string]any{
			"Operator": "eval", "Expected": "a known expression node", "Got": node.String(),
		})
	}
}

func evalArrayLiteral(node *ast.ArrayLiteral, ctx *Context, env *Env) Object {
	elements := make([]Object, len(node.Elements))
	for i, e := range node.Elements {
		v := Eval(e, ctx, env)
		if isError(v) {
			return v
		}
		elements[i] = v
	}
	return &Array{Elements: elements}
}

// evalFieldRef resolves a scoped field path. Navigation is safe: a missing
// field, or a path step through null or a non-object, yields null rather
// than an error. An unbound parent level is the one hard failure, because it
// means the condition is attached at the wrong nesting depth in the schema.
func evalFieldRef(ref *ast.FieldRef, ctx *Context) Object {
	var base Object
	switch ref.Scope {
	case ast.ScopeParent:
		parent, ok := ctx.Parent(ref.ParentLevel)
		if !ok {
			return newError("EVAL-0002", map[string]any{
				"Level": parentSuffix(ref.ParentLevel), "Have": len(ctx.Ancestors),
			})
		}
		base = parent
	case ast.ScopeRoot:
		base = ctx.Root
	default:
		base = ctx.Data
	}

	current := base
	for _, segment := range ref.Path {
		dict, ok := current.(*Dict)
		if !ok {
			return NULL
		}
		current = dict.Get(segment)
	}
	return current
}

func parentSuffix(level int) string {
	if level <= 1 {
		return ""
	}
	return strconv.Itoa(level)
}
