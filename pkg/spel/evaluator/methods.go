package evaluator

import (
	"strings"
	"time"

	"github.com/avolkov/spector/pkg/spel/ast"
)

// evalMethodCall dispatches call(target, method, args...). The method set is
// the small closed catalog the schema contract actually uses: date
// arithmetic, date and string comparison, and length.
//
// An Unknown node is a function name the parser did not recognize; it parsed
// cleanly for forward compatibility and fails only here, when something
// actually evaluates it.
func evalMethodCall(node *ast.MethodCall, ctx *Context, env *Env) Object {
	if node.Unknown {
		return newError("EVAL-0003", map[string]any{"Name": node.Method})
	}

	target := Eval(node.Target, ctx, env)
	if isError(target) {
		return target
	}

	args := make([]Object, len(node.Args))
	for i, a := range node.Args {
		v := Eval(a, ctx, env)
		if isError(v) {
			return v
		}
		args[i] = v
	}

	switch strings.ToLower(node.Method) {
	case "minusyears":
		return evalDateShift(node.Method, target, args, minusYears)
	case "plusyears":
		return evalDateShift(node.Method, target, args, plusYears)
	case "minusdays":
		return evalDateShift(node.Method, target, args, minusDays)
	case "plusdays":
		return evalDateShift(node.Method, target, args, plusDays)

	case "isafter":
		return evalDateComparison(node.Method, target, args, func(cmp int) bool { return cmp > 0 })
	case "isbefore":
		return evalDateComparison(node.Method, target, args, func(cmp int) bool { return cmp < 0 })

	case "compareto":
		return evalCompareTo(target, args)

	case "length":
		if errObj := checkMethodArity(node.Method, args, 0); errObj != nil {
			return errObj
		}
		n, ok := lengthOf(target)
		if !ok {
			return typeError("length", "STRING or ARRAY", target)
		}
		return &Integer{Value: int64(n)}

	case "tolocaldate":
		if errObj := checkMethodArity(node.Method, args, 0); errObj != nil {
			return errObj
		}
		if target == NULL {
			return NULL
		}
		d, ok := toDate(target)
		if !ok {
			return typeError("toLocalDate", "a parseable date", target)
		}
		return d

	case "touppercase":
		return evalStringTransform(node.Method, target, args, strings.ToUpper)
	case "tolowercase":
		return evalStringTransform(node.Method, target, args, strings.ToLower)
	case "trim":
		return evalStringTransform(node.Method, target, args, strings.TrimSpace)

	default:
		return newError("EVAL-0003", map[string]any{"Name": node.Method})
	}
}

// evalDateShift handles the four date-arithmetic methods, which all take one
// integer argument and shift a date value.
func evalDateShift(method string, target Object, args []Object, shift func(time.Time, int64) time.Time) Object {
	if errObj := checkMethodArity(method, args, 1); errObj != nil {
		return errObj
	}
	if target == NULL {
		return NULL
	}
	d, ok := toDate(target)
	if !ok {
		return typeError(method, "DATE", target)
	}
	n, ok := args[0].(*Integer)
	if !ok {
		return typeError(method, "INTEGER", args[0])
	}
	return &Date{Value: shift(d.Value, n.Value)}
}

func evalDateComparison(method string, target Object, args []Object, test func(cmp int) bool) Object {
	if errObj := checkMethodArity(method, args, 1); errObj != nil {
		return errObj
	}
	if target == NULL || args[0] == NULL {
		return FALSE
	}
	left, ok := toDate(target)
	if !ok {
		return typeError(method, "DATE", target)
	}
	right, ok := toDate(args[0])
	if !ok {
		return typeError(method, "DATE", args[0])
	}
	return nativeBoolToBooleanObject(test(compareDates(left.Value, right.Value)))
}

// evalCompareTo returns -1, 0 or 1 for any pair the ordering operators
// accept: numbers, strings, or dates.
func evalCompareTo(target Object, args []Object) Object {
	if errObj := checkMethodArity("compareTo", args, 1); errObj != nil {
		return errObj
	}
	cmp, ok := compareOrdered(target, args[0])
	if !ok {
		return typeError("compareTo", "two comparable values", target)
	}
	return &Integer{Value: int64(cmp)}
}

func evalStringTransform(method string, target Object, args []Object, transform func(string) string) Object {
	if errObj := checkMethodArity(method, args, 0); errObj != nil {
		return errObj
	}
	if target == NULL {
		return NULL
	}
	s, ok := target.(*String)
	if !ok {
		return typeError(method, "STRING", target)
	}
	return &String{Value: transform(s.Value)}
}

func checkMethodArity(method string, args []Object, want int) Object {
	if len(args) != want {
		return newError("EVAL-0004", map[string]any{
			"Method": method, "Want": want, "Got": len(args),
		})
	}
	return nil
}
