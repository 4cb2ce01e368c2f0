package evaluator

import (
	"github.com/avolkov/spector/pkg/spel/ast"
)

// evalCollectionPredicate implements anyMatch/allMatch/noneMatch/filter/map/
// hasSize. The predicate runs once per element with that element bound as the
// current data object; ancestors and root are unchanged, so parent inside the
// predicate still refers to the collection owner's parent.
func evalCollectionPredicate(node *ast.CollectionPredicate, ctx *Context, env *Env) Object {
	collection := Eval(node.Collection, ctx, env)
	if isError(collection) {
		return collection
	}

	// A null collection behaves as empty: vacuous truth for allMatch and
	// noneMatch, false for anyMatch, zero size for hasSize.
	var elements []Object
	switch c := collection.(type) {
	case *Array:
		elements = c.Elements
	case *Null:
	default:
		return typeError(node.Kind.String(), "ARRAY", collection)
	}

	if node.Kind == ast.HasSize {
		expected := Eval(node.Predicate, ctx, env)
		if isError(expected) {
			return expected
		}
		n, ok := expected.(*Integer)
		if !ok {
			return typeError("hasSize", "INTEGER", expected)
		}
		return nativeBoolToBooleanObject(int64(len(elements)) == n.Value)
	}

	switch node.Kind {
	case ast.AnyMatch:
		for _, elem := range elements {
			match, errObj := evalElementPredicate(node, elem, ctx, env)
			if errObj != nil {
				return errObj
			}
			if match {
				return TRUE
			}
		}
		return FALSE

	case ast.AllMatch:
		for _, elem := range elements {
			match, errObj := evalElementPredicate(node, elem, ctx, env)
			if errObj != nil {
				return errObj
			}
			if !match {
				return FALSE
			}
		}
		return TRUE

	case ast.NoneMatch:
		for _, elem := range elements {
			match, errObj := evalElementPredicate(node, elem, ctx, env)
			if errObj != nil {
				return errObj
			}
			if match {
				return FALSE
			}
		}
		return TRUE

	case ast.Filter:
		var kept []Object
		for _, elem := range elements {
			match, errObj := evalElementPredicate(node, elem, ctx, env)
			if errObj != nil {
				return errObj
			}
			if match {
				kept = append(kept, elem)
			}
		}
		return &Array{Elements: kept}

	case ast.Map:
		mapped := make([]Object, len(elements))
		for i, elem := range elements {
			v := Eval(node.Predicate, ctx.WithData(elem), env)
			if isError(v) {
				return v
			}
			mapped[i] = v
		}
		return &Array{Elements: mapped}

	default:
		return typeError(node.Kind.String(), "a supported collection operator", collection)
	}
}

// evalElementPredicate evaluates the predicate against one element and
// requires a boolean result.
func evalElementPredicate(node *ast.CollectionPredicate, elem Object, ctx *Context, env *Env) (bool, Object) {
	v := Eval(node.Predicate, ctx.WithData(elem), env)
	if isError(v) {
		return false, v
	}
	b, ok := v.(*Boolean)
	if !ok {
		return false, typeError(node.Kind.String(), "BOOLEAN predicate result", v)
	}
	return b.Value, nil
}
