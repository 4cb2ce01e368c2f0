package evaluator

import (
	"github.com/avolkov/spector/pkg/spel/ast"
)

func evalUnaryOp(node *ast.UnaryOp, ctx *Context, env *Env) Object {
	if node.Kind == ast.CurrentDate {
		return currentDate(env)
	}

	operand := Eval(node.Operand, ctx, env)
	if isError(operand) {
		return operand
	}

	switch node.Kind {
	case ast.Not:
		b, ok := operand.(*Boolean)
		if !ok {
			return typeError("not", "BOOLEAN", operand)
		}
		return nativeBoolToBooleanObject(!b.Value)

	case ast.IsNull:
		return nativeBoolToBooleanObject(operand == NULL)
	case ast.NotNull:
		return nativeBoolToBooleanObject(operand != NULL)

	case ast.IsBlank:
		return nativeBoolToBooleanObject(isBlankObject(operand))
	case ast.NotBlank:
		return nativeBoolToBooleanObject(!isBlankObject(operand))

	case ast.Size:
		n, ok := lengthOf(operand)
		if !ok {
			return typeError("size", "ARRAY, STRING or DICT", operand)
		}
		return &Integer{Value: int64(n)}

	case ast.NotEmptyList:
		arr, ok := operand.(*Array)
		return nativeBoolToBooleanObject(ok && len(arr.Elements) > 0)

	case ast.IsValidTaxNum:
		return evalIsValidTaxNum(operand)
	case ast.IsValidUUID:
		return evalIsValidUUID(operand)

	default:
		return typeError(node.Kind.String(), "a supported operand", operand)
	}
}

func evalBinaryOp(node *ast.BinaryOp, ctx *Context, env *Env) Object {
	left := Eval(node.Left, ctx, env)
	if isError(left) {
		return left
	}
	right := Eval(node.Right, ctx, env)
	if isError(right) {
		return right
	}

	switch node.Kind {
	case ast.Eq:
		return nativeBoolToBooleanObject(valuesEqual(left, right))
	case ast.NotEq:
		return nativeBoolToBooleanObject(!valuesEqual(left, right))
	case ast.EqOrGreater, ast.EqOrLess:
		// Missing data orders as false; two present values of mismatched
		// types are a miswired condition and must surface as an error.
		if left == NULL || right == NULL {
			return FALSE
		}
		cmp, ok := compareOrdered(left, right)
		if !ok {
			return typeError(node.Kind.String(), "two numbers, strings or dates", left)
		}
		if node.Kind == ast.EqOrGreater {
			return nativeBoolToBooleanObject(cmp >= 0)
		}
		return nativeBoolToBooleanObject(cmp <= 0)
	case ast.ContainsAll:
		return evalContainsAll(left, right)
	default:
		return typeError(node.Kind.String(), "a supported operand", left)
	}
}

func evalNaryOp(node *ast.NaryOp, ctx *Context, env *Env) Object {
	switch node.Kind {
	case ast.And:
		return evalShortCircuit(node, ctx, env, false)
	case ast.Or:
		return evalShortCircuit(node, ctx, env, true)
	case ast.In:
		return evalIn(node, ctx, env, false)
	case ast.NotIn:
		return evalIn(node, ctx, env, true)
	case ast.DigitsCheck:
		return evalDigitsCheck(node, ctx, env)
	case ast.IsDictionaryValue:
		return evalIsDictionaryValue(node, ctx, env)
	default:
		return newError("EVAL-0003", map[string]any{"Name": node.Kind.String()})
	}
}

// evalShortCircuit implements and/or. Operands evaluate left to right and
// evaluation stops at the first decisive value, so a condition can guard a
// later operand against an unbound parent or a type mismatch.
func evalShortCircuit(node *ast.NaryOp, ctx *Context, env *Env, stopOn bool) Object {
	for _, operand := range node.Operands {
		v := Eval(operand, ctx, env)
		if isError(v) {
			return v
		}
		b, ok := v.(*Boolean)
		if !ok {
			return typeError(node.Kind.String(), "BOOLEAN", v)
		}
		if b.Value == stopOn {
			return nativeBoolToBooleanObject(stopOn)
		}
	}
	return nativeBoolToBooleanObject(!stopOn)
}

// evalIn tests the first operand for membership among the rest. An array
// candidate contributes its elements, so in(x, [1, 2]) and in(x, 1, 2) are
// equivalent. Membership uses the same equality as eq: numeric widths
// coerce, but a string never equals a number.
func evalIn(node *ast.NaryOp, ctx *Context, env *Env, negate bool) Object {
	subject := Eval(node.Operands[0], ctx, env)
	if isError(subject) {
		return subject
	}

	found := false
	for _, candidate := range node.Operands[1:] {
		v := Eval(candidate, ctx, env)
		if isError(v) {
			return v
		}
		if arr, ok := v.(*Array); ok {
			for _, e := range arr.Elements {
				if valuesEqual(subject, e) {
					found = true
				}
			}
			continue
		}
		if valuesEqual(subject, v) {
			found = true
		}
	}

	return nativeBoolToBooleanObject(found != negate)
}

func evalContainsAll(left, right Object) Object {
	haystack, ok := left.(*Array)
	if !ok {
		return FALSE
	}
	needles, ok := right.(*Array)
	if !ok {
		return FALSE
	}

	for _, needle := range needles.Elements {
		found := false
		for _, e := range haystack.Elements {
			if valuesEqual(needle, e) {
				found = true
				break
			}
		}
		if !found {
			return FALSE
		}
	}
	return TRUE
}

// valuesEqual implements eq semantics: integers and decimals compare
// numerically across the two widths, everything else compares within its own
// type only. null equals only null.
func valuesEqual(a, b Object) bool {
	if a == NULL || b == NULL {
		return a == b
	}

	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an == bn
		}
		return false
	}

	switch a := a.(type) {
	case *String:
		b, ok := b.(*String)
		return ok && a.Value == b.Value
	case *Boolean:
		b, ok := b.(*Boolean)
		return ok && a.Value == b.Value
	case *Date:
		b, ok := b.(*Date)
		return ok && sameDay(a.Value, b.Value)
	case *Array:
		b, ok := b.(*Array)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !valuesEqual(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// compareOrdered compares two ordered values: numbers, strings, or dates.
// The boolean reports whether the operands were comparable at all; callers
// decide what an incomparable pair means.
func compareOrdered(a, b Object) (int, bool) {
	if an, aok := asNumber(a); aok {
		bn, bok := asNumber(b)
		if !bok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}

	if as, ok := a.(*String); ok {
		bs, ok := b.(*String)
		if !ok {
			return 0, false
		}
		switch {
		case as.Value < bs.Value:
			return -1, true
		case as.Value > bs.Value:
			return 1, true
		default:
			return 0, true
		}
	}

	if ad, ok := a.(*Date); ok {
		bd, ok := b.(*Date)
		if !ok {
			return 0, false
		}
		return compareDates(ad.Value, bd.Value), true
	}

	return 0, false
}

func isBlankObject(obj Object) bool {
	switch obj := obj.(type) {
	case *Null:
		return true
	case *String:
		return isBlankString(obj.Value)
	default:
		return false
	}
}

func lengthOf(obj Object) (int, bool) {
	switch obj := obj.(type) {
	case *Array:
		return len(obj.Elements), true
	case *String:
		return len([]rune(obj.Value)), true
	case *Dict:
		return len(obj.Pairs), true
	case *Null:
		return 0, true
	default:
		return 0, false
	}
}

func typeError(operator, expected string, got Object) *Error {
	return newError("EVAL-0001", map[string]any{
		"Operator": operator, "Expected": expected, "Got": string(got.Type()),
	})
}
