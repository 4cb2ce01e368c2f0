// Package ast defines the node catalog for parsed SpEL condition expressions.
//
// The surface form is function-call syntax (and(eq(a, 1), notNull(b))), so
// every operator is a named call; the parser resolves names to the closed set
// of node kinds below. Nodes are immutable once constructed and safe to share
// between goroutines; String() reconstructs the canonical source form, which
// is also what structural-equality tests compare.
package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/avolkov/spector/pkg/spel/lexer"
)

// Expression represents any node in the AST
type Expression interface {
	TokenLiteral() string
	String() string
	expressionNode()
}

// Scope identifies which object a field path resolves against.
type Scope int

const (
	ScopeField  Scope = iota // relative to the current data object
	ScopeThis                // explicit this / #this
	ScopeParent              // parent, parent2, parent$3, ...
	ScopeRoot                // root, rootBean, #rootBean
)

func (s Scope) String() string {
	switch s {
	case ScopeThis:
		return "this"
	case ScopeParent:
		return "parent"
	case ScopeRoot:
		return "root"
	default:
		return "field"
	}
}

// UnaryKind enumerates single-operand operators.
type UnaryKind int

const (
	Not UnaryKind = iota
	IsNull
	NotNull
	IsBlank
	NotBlank
	Size
	NotEmptyList
	IsValidTaxNum
	IsValidUUID
	CurrentDate // nullary: Operand is nil
)

func (k UnaryKind) String() string {
	switch k {
	case Not:
		return "not"
	case IsNull:
		return "isNull"
	case NotNull:
		return "notNull"
	case IsBlank:
		return "isBlank"
	case NotBlank:
		return "notBlank"
	case Size:
		return "size"
	case NotEmptyList:
		return "notEmptyList"
	case IsValidTaxNum:
		return "isValidTaxNum"
	case IsValidUUID:
		return "isValidUuid"
	case CurrentDate:
		return "currentDate"
	default:
		return "unary?"
	}
}

// BinaryKind enumerates two-operand operators.
type BinaryKind int

const (
	Eq BinaryKind = iota
	NotEq
	EqOrGreater
	EqOrLess
	ContainsAll
)

func (k BinaryKind) String() string {
	switch k {
	case Eq:
		return "eq"
	case NotEq:
		return "notEq"
	case EqOrGreater:
		return "eqOrGreater"
	case EqOrLess:
		return "eqOrLess"
	case ContainsAll:
		return "containsAll"
	default:
		return "binary?"
	}
}

// NaryKind enumerates variable-arity operators.
type NaryKind int

const (
	And NaryKind = iota
	Or
	In
	NotIn
	DigitsCheck
	IsDictionaryValue
)

func (k NaryKind) String() string {
	switch k {
	case And:
		return "and"
	case Or:
		return "or"
	case In:
		return "in"
	case NotIn:
		return "notIn"
	case DigitsCheck:
		return "digitsCheck"
	case IsDictionaryValue:
		return "isDictionaryValue"
	default:
		return "nary?"
	}
}

// CollectionKind enumerates the collection-predicate operators. The second
// argument is an expression evaluated once per element with that element
// bound as the current data object.
type CollectionKind int

const (
	AnyMatch CollectionKind = iota
	AllMatch
	NoneMatch
	Filter
	Map
	HasSize
)

func (k CollectionKind) String() string {
	switch k {
	case AnyMatch:
		return "anyMatch"
	case AllMatch:
		return "allMatch"
	case NoneMatch:
		return "noneMatch"
	case Filter:
		return "filter"
	case Map:
		return "map"
	case HasSize:
		return "hasSize"
	default:
		return "collection?"
	}
}

// IntegerLiteral represents integer literals
type IntegerLiteral struct {
	Token lexer.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return strconv.FormatInt(il.Value, 10) }

// FloatLiteral represents decimal literals
type FloatLiteral struct {
	Token lexer.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return strconv.FormatFloat(fl.Value, 'f', -1, 64) }

// StringLiteral represents double-quoted string literals
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }

// BooleanLiteral represents true/false in any accepted case variant
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return strconv.FormatBool(bl.Value) }

// NullLiteral represents null in any accepted case variant
type NullLiteral struct {
	Token lexer.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }

// ArrayLiteral represents bracketed lists like [10410001, 10410002],
// used as operands of in/containsAll
type ArrayLiteral struct {
	Token    lexer.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) String() string {
	elements := make([]string, len(al.Elements))
	for i, e := range al.Elements {
		elements[i] = e.String()
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// FieldRef represents a dot-separated field path with a resolution scope.
// The scope-selecting leading segment (this, parentN, rootBean) is stripped
// from Path at parse time; ParentLevel is meaningful only for ScopeParent.
type FieldRef struct {
	Token       lexer.Token
	Scope       Scope
	ParentLevel int
	Path        []string
}

func (fr *FieldRef) expressionNode()      {}
func (fr *FieldRef) TokenLiteral() string { return fr.Token.Literal }
func (fr *FieldRef) String() string {
	var prefix string
	switch fr.Scope {
	case ScopeThis:
		prefix = "this"
	case ScopeRoot:
		prefix = "root"
	case ScopeParent:
		if fr.ParentLevel > 1 {
			prefix = "parent" + strconv.Itoa(fr.ParentLevel)
		} else {
			prefix = "parent"
		}
	}
	if prefix == "" {
		return strings.Join(fr.Path, ".")
	}
	if len(fr.Path) == 0 {
		return prefix
	}
	return prefix + "." + strings.Join(fr.Path, ".")
}

// UnaryOp represents single-operand operators, including the builtin
// validation predicates. Operand is nil for currentDate.
type UnaryOp struct {
	Token   lexer.Token // the function-name token
	Kind    UnaryKind
	Operand Expression
}

func (uo *UnaryOp) expressionNode()      {}
func (uo *UnaryOp) TokenLiteral() string { return uo.Token.Literal }
func (uo *UnaryOp) String() string {
	if uo.Operand == nil {
		return uo.Kind.String() + "()"
	}
	return uo.Kind.String() + "(" + uo.Operand.String() + ")"
}

// BinaryOp represents two-operand operators
type BinaryOp struct {
	Token lexer.Token
	Kind  BinaryKind
	Left  Expression
	Right Expression
}

func (bo *BinaryOp) expressionNode()      {}
func (bo *BinaryOp) TokenLiteral() string { return bo.Token.Literal }
func (bo *BinaryOp) String() string {
	return bo.Kind.String() + "(" + bo.Left.String() + ", " + bo.Right.String() + ")"
}

// NaryOp represents variable-arity operators. For in/notIn the first operand
// is the subject and the rest are candidates; for digitsCheck the operands
// are value, intDigits, fracDigits; for isDictionaryValue they are
// dictionaryName, value and an optional allowEmpty flag.
type NaryOp struct {
	Token    lexer.Token
	Kind     NaryKind
	Operands []Expression
}

func (no *NaryOp) expressionNode()      {}
func (no *NaryOp) TokenLiteral() string { return no.Token.Literal }
func (no *NaryOp) String() string {
	var out bytes.Buffer
	out.WriteString(no.Kind.String())
	out.WriteString("(")
	for i, op := range no.Operands {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(op.String())
	}
	out.WriteString(")")
	return out.String()
}

// CollectionPredicate represents anyMatch/allMatch/noneMatch/filter/map/hasSize.
// For hasSize the Predicate is the expected-size expression rather than a
// per-element predicate.
type CollectionPredicate struct {
	Token      lexer.Token
	Kind       CollectionKind
	Collection Expression
	Predicate  Expression
}

func (cp *CollectionPredicate) expressionNode()      {}
func (cp *CollectionPredicate) TokenLiteral() string { return cp.Token.Literal }
func (cp *CollectionPredicate) String() string {
	return cp.Kind.String() + "(" + cp.Collection.String() + ", " + cp.Predicate.String() + ")"
}

// MethodCall represents call(target, methodName, args...), the escape hatch
// for Date/String builtin methods, and, with Unknown set, any function name
// the parser did not recognize. Unknown calls parse cleanly (forward
// compatibility with newer schema versions) and only fail if evaluated.
type MethodCall struct {
	Token   lexer.Token
	Target  Expression // nil for unknown top-level calls
	Method  string
	Args    []Expression
	Unknown bool
}

func (mc *MethodCall) expressionNode()      {}
func (mc *MethodCall) TokenLiteral() string { return mc.Token.Literal }
func (mc *MethodCall) String() string {
	var out bytes.Buffer
	if mc.Unknown {
		out.WriteString(mc.Method)
		out.WriteString("(")
		for i, a := range mc.Args {
			if i > 0 {
				out.WriteString(", ")
			}
			out.WriteString(a.String())
		}
		out.WriteString(")")
		return out.String()
	}
	out.WriteString("call(")
	out.WriteString(mc.Target.String())
	out.WriteString(", ")
	out.WriteString(mc.Method)
	for _, a := range mc.Args {
		out.WriteString(", ")
		out.WriteString(a.String())
	}
	out.WriteString(")")
	return out.String()
}
