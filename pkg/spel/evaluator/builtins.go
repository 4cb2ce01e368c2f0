package evaluator

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/avolkov/spector/pkg/spel/ast"
)

// Weight tables for the Russian tax number (INN) check digits. A 10-digit
// number carries one check digit, a 12-digit number carries two.
var (
	innWeights10  = []int{2, 4, 10, 3, 5, 9, 4, 6, 8}
	innWeights12a = []int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
	innWeights12b = []int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
)

// evalIsValidTaxNum validates an INN given as a string or as an integer;
// scenario documents carry the number both ways. Anything else, null
// included, is simply invalid; questions about absent data belong to
// isNull/notNull.
func evalIsValidTaxNum(operand Object) Object {
	switch v := operand.(type) {
	case *String:
		return nativeBoolToBooleanObject(isValidINN(v.Value))
	case *Integer:
		return nativeBoolToBooleanObject(isValidINN(strconv.FormatInt(v.Value, 10)))
	default:
		return FALSE
	}
}

func isValidINN(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	digits := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		digits[i] = int(s[i] - '0')
	}

	switch len(digits) {
	case 10:
		return innCheckDigit(digits, innWeights10) == digits[9]
	case 12:
		return innCheckDigit(digits, innWeights12a) == digits[10] &&
			innCheckDigit(digits, innWeights12b) == digits[11]
	default:
		return false
	}
}

// innCheckDigit computes the weighted sum over the leading digits,
// modulo 11 then modulo 10.
func innCheckDigit(digits, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += digits[i] * w
	}
	return sum % 11 % 10
}

// evalIsValidUUID accepts only the canonical 36-character hyphenated form.
// uuid.Parse alone is too permissive: it also takes braced and bare-hex
// variants that the API contract does not allow.
func evalIsValidUUID(operand Object) Object {
	s, ok := operand.(*String)
	if !ok {
		return FALSE
	}
	if len(s.Value) != 36 {
		return FALSE
	}
	_, err := uuid.Parse(s.Value)
	return nativeBoolToBooleanObject(err == nil)
}

// evalDigitsCheck verifies that a numeric value fits within the given count
// of integer and fraction digits, mirroring a database NUMERIC(p,s) bound.
// null passes: presence is checked separately.
func evalDigitsCheck(node *ast.NaryOp, ctx *Context, env *Env) Object {
	value := Eval(node.Operands[0], ctx, env)
	if isError(value) {
		return value
	}
	if value == NULL {
		return TRUE
	}

	intDigits, errObj := evalIntOperand(node.Operands[1], "digitsCheck", ctx, env)
	if errObj != nil {
		return errObj
	}
	fracDigits, errObj := evalIntOperand(node.Operands[2], "digitsCheck", ctx, env)
	if errObj != nil {
		return errObj
	}

	var repr string
	switch v := value.(type) {
	case *Integer, *Float:
		repr, _ = asString(v)
	case *String:
		repr = strings.TrimSpace(v.Value)
		if !isNumericString(repr) {
			return FALSE
		}
	default:
		return FALSE
	}

	repr = strings.TrimPrefix(repr, "-")
	intPart, fracPart, _ := strings.Cut(repr, ".")
	return nativeBoolToBooleanObject(
		int64(len(intPart)) <= intDigits && int64(len(fracPart)) <= fracDigits)
}

func isNumericString(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	dots := 0
	for _, ch := range s {
		if ch == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// evalIsDictionaryValue tests membership of a value in a named reference
// dictionary. The optional third operand makes an absent or blank value
// acceptable, for optional fields that are only constrained when present.
func evalIsDictionaryValue(node *ast.NaryOp, ctx *Context, env *Env) Object {
	nameObj := Eval(node.Operands[0], ctx, env)
	if isError(nameObj) {
		return nameObj
	}
	name, ok := nameObj.(*String)
	if !ok {
		return typeError("isDictionaryValue", "STRING dictionary name", nameObj)
	}

	value := Eval(node.Operands[1], ctx, env)
	if isError(value) {
		return value
	}

	allowEmpty := false
	if len(node.Operands) == 3 {
		flag := Eval(node.Operands[2], ctx, env)
		if isError(flag) {
			return flag
		}
		b, ok := flag.(*Boolean)
		if !ok {
			return typeError("isDictionaryValue", "BOOLEAN allowEmpty flag", flag)
		}
		allowEmpty = b.Value
	}

	if isBlankObject(value) {
		return nativeBoolToBooleanObject(allowEmpty)
	}

	repr, ok := asString(value)
	if !ok {
		return FALSE
	}
	if env.Dicts == nil || !env.Dicts.Has(name.Value) {
		return FALSE
	}
	return nativeBoolToBooleanObject(env.Dicts.Contains(name.Value, repr))
}

func evalIntOperand(expr ast.Expression, operator string, ctx *Context, env *Env) (int64, Object) {
	v := Eval(expr, ctx, env)
	if isError(v) {
		return 0, v
	}
	i, ok := v.(*Integer)
	if !ok {
		return 0, typeError(operator, "INTEGER", v)
	}
	return i.Value, nil
}
