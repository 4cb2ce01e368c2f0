// Package parser turns a token stream into a SpEL condition AST.
//
// The grammar is function-call notation only: every operator is a named call
// (and(eq(a, 1), in(b, 1, 2))), so there is no operator precedence to manage.
// Rule order matters: literals and the 'this' keyword are matched before
// field paths so that True or null are never swallowed as field names, and
// a name followed by '(' is always a call.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/avolkov/spector/pkg/spel/ast"
	serrors "github.com/avolkov/spector/pkg/spel/errors"
	"github.com/avolkov/spector/pkg/spel/lexer"
)

// maxDepth bounds parser recursion so a pathological expression string fails
// with a structured error instead of a stack overflow.
const maxDepth = 200

// operatorNames is the full surface catalog, used for "did you mean?" hints
// on unknown function names.
var operatorNames = []string{
	"and", "or", "not",
	"eq", "notEq", "eqOrGreater", "eqOrLess",
	"in", "notIn",
	"isNull", "notNull", "isBlank", "notBlank",
	"anyMatch", "allMatch", "noneMatch", "filter", "map", "hasSize",
	"size", "notEmptyList", "containsAll",
	"call", "currentDate",
	"isValidTaxNum", "isValidUuid", "digitsCheck", "isDictionaryValue",
}

var parentPattern = regexp.MustCompile(`^parent\$?([0-9]+)$`)

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	curToken  lexer.Token
	peekToken lexer.Token

	err      *serrors.SpelError
	warnings []string
	depth    int
}

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses a complete expression. Trailing tokens after the expression
// are an error: a schema condition is exactly one expression.
func (p *Parser) Parse() (ast.Expression, *serrors.SpelError) {
	expr := p.parseExpression()
	if p.err != nil {
		return nil, p.err
	}
	if p.curToken.Type != lexer.EOF {
		p.addError("PARSE-0006", p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil, p.err
	}
	return expr, nil
}

// Warnings returns non-fatal findings collected during parsing, currently
// unknown function names. Callers are expected to log them.
func (p *Parser) Warnings() []string {
	return p.warnings
}

// nextToken advances curToken and peekToken
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// addError records a structured error.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	if p.err != nil {
		return
	}
	p.err = serrors.NewAt(code, tok.Offset, tok.Line, tok.Column, data)
}

// parseExpression parses one expression with curToken as its first token and
// leaves curToken on the token after the expression.
func (p *Parser) parseExpression() ast.Expression {
	if p.err != nil {
		return nil
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		p.addError("PARSE-0007", p.curToken, map[string]any{"Max": maxDepth})
		return nil
	}

	switch p.curToken.Type {
	case lexer.INT, lexer.FLOAT, lexer.MINUS:
		return p.parseNumberLiteral()
	case lexer.STRING:
		lit := &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
		p.nextToken()
		return lit
	case lexer.TRUE, lexer.FALSE:
		lit := &ast.BooleanLiteral{Token: p.curToken, Value: p.curToken.Type == lexer.TRUE}
		p.nextToken()
		return lit
	case lexer.NULL:
		lit := &ast.NullLiteral{Token: p.curToken}
		p.nextToken()
		return lit
	case lexer.LBRACKET:
		return p.parseArrayLiteral()
	case lexer.THIS:
		return p.parseFieldPath()
	case lexer.IDENT:
		if p.peekToken.Type == lexer.LPAREN {
			return p.parseCall()
		}
		return p.parseFieldPath()
	case lexer.ILLEGAL:
		if strings.HasPrefix(p.curToken.Literal, `"`) {
			p.addError("PARSE-0003", p.curToken, nil)
		} else {
			p.addError("PARSE-0008", p.curToken, map[string]any{"Char": p.curToken.Literal})
		}
		return nil
	case lexer.EOF:
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "an expression", "Got": "end of input"})
		return nil
	default:
		p.addError("PARSE-0002", p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil
	}
}

// parseNumberLiteral parses an integer or decimal literal with an optional
// leading minus sign.
func (p *Parser) parseNumberLiteral() ast.Expression {
	tok := p.curToken
	negative := false
	if p.curToken.Type == lexer.MINUS {
		negative = true
		p.nextToken()
		if p.curToken.Type != lexer.INT && p.curToken.Type != lexer.FLOAT {
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a number after '-'", "Got": p.curToken.Literal})
			return nil
		}
	}

	literal := p.curToken.Literal
	numTok := p.curToken
	p.nextToken()

	if numTok.Type == lexer.FLOAT {
		value, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			p.addError("PARSE-0004", numTok, map[string]any{"Literal": literal})
			return nil
		}
		if negative {
			value = -value
		}
		return &ast.FloatLiteral{Token: tok, Value: value}
	}

	value, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		p.addError("PARSE-0004", numTok, map[string]any{"Literal": literal})
		return nil
	}
	if negative {
		value = -value
	}
	return &ast.IntegerLiteral{Token: tok, Value: value}
}

// parseArrayLiteral parses [expr, expr, ...]
func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken}
	p.nextToken() // consume '['

	if p.curToken.Type == lexer.RBRACKET {
		p.nextToken()
		return arr
	}

	for {
		elem := p.parseExpression()
		if p.err != nil {
			return nil
		}
		arr.Elements = append(arr.Elements, elem)

		switch p.curToken.Type {
		case lexer.COMMA:
			p.nextToken()
		case lexer.RBRACKET:
			p.nextToken()
			return arr
		default:
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "',' or ']'", "Got": p.curToken.Literal})
			return nil
		}
	}
}

// parseFieldPath parses a dot-separated identifier chain and resolves its
// scope from the leading segment.
func (p *Parser) parseFieldPath() ast.Expression {
	tok := p.curToken
	segments := []string{p.curToken.Literal}
	p.nextToken()

	for p.curToken.Type == lexer.DOT {
		p.nextToken()
		if p.curToken.Type != lexer.IDENT && p.curToken.Type != lexer.THIS {
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a field name after '.'", "Got": p.curToken.Literal})
			return nil
		}
		segments = append(segments, p.curToken.Literal)
		p.nextToken()
	}

	scope, level, rest := resolveScope(segments)
	return &ast.FieldRef{Token: tok, Scope: scope, ParentLevel: level, Path: rest}
}

// resolveScope inspects the leading path segment: this/#this, root/rootBean/
// #rootBean, and parent/parentN/parent$N select a scope and are stripped from
// the path; anything else is a plain field reference.
func resolveScope(segments []string) (ast.Scope, int, []string) {
	head := strings.TrimPrefix(segments[0], "#")
	rest := segments[1:]

	switch head {
	case "this":
		return ast.ScopeThis, 0, rest
	case "root", "rootBean":
		return ast.ScopeRoot, 0, rest
	case "parent":
		return ast.ScopeParent, 1, rest
	}
	if m := parentPattern.FindStringSubmatch(head); m != nil {
		if level, err := strconv.Atoi(m[1]); err == nil && level >= 1 {
			return ast.ScopeParent, level, rest
		}
	}
	return ast.ScopeField, 0, segments
}

// parseCall parses IDENT "(" args? ")" and dispatches on the function name.
func (p *Parser) parseCall() ast.Expression {
	tok := p.curToken
	name := p.curToken.Literal
	p.nextToken() // now on '('
	p.nextToken() // now on first arg or ')'

	var args []ast.Expression
	if p.curToken.Type == lexer.RPAREN {
		p.nextToken()
		return p.dispatch(tok, name, args)
	}

	for {
		arg := p.parseExpression()
		if p.err != nil {
			return nil
		}
		args = append(args, arg)

		switch p.curToken.Type {
		case lexer.COMMA:
			p.nextToken()
		case lexer.RPAREN:
			p.nextToken()
			return p.dispatch(tok, name, args)
		default:
			p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "',' or ')'", "Got": p.curToken.Literal})
			return nil
		}
	}
}

// dispatch maps a function name (case-insensitive) to its AST node kind,
// checking arity. Unknown names become an inert MethodCall with a warning:
// schemas from newer contract versions may carry operators this build does
// not know, and that must not abort compilation of the whole schema.
func (p *Parser) dispatch(tok lexer.Token, name string, args []ast.Expression) ast.Expression {
	switch strings.ToLower(name) {
	case "and":
		return p.nary(tok, ast.And, args, 2)
	case "or":
		return p.nary(tok, ast.Or, args, 2)
	case "not":
		return p.unary(tok, ast.Not, args)
	case "eq":
		return p.binary(tok, ast.Eq, args)
	case "noteq", "ne":
		return p.binary(tok, ast.NotEq, args)
	case "eqorgreater":
		return p.binary(tok, ast.EqOrGreater, args)
	case "eqorless":
		return p.binary(tok, ast.EqOrLess, args)
	case "containsall":
		return p.binary(tok, ast.ContainsAll, args)
	case "in":
		return p.nary(tok, ast.In, args, 2)
	case "notin":
		return p.nary(tok, ast.NotIn, args, 2)
	case "isnull":
		return p.unary(tok, ast.IsNull, args)
	case "notnull":
		return p.unary(tok, ast.NotNull, args)
	case "isblank":
		return p.unary(tok, ast.IsBlank, args)
	case "notblank":
		return p.unary(tok, ast.NotBlank, args)
	case "size":
		return p.unary(tok, ast.Size, args)
	case "notemptylist":
		return p.unary(tok, ast.NotEmptyList, args)
	case "isvalidtaxnum":
		return p.unary(tok, ast.IsValidTaxNum, args)
	case "isvaliduuid":
		return p.unary(tok, ast.IsValidUUID, args)
	case "currentdate":
		if len(args) != 0 {
			return p.arityError(tok, name, "0", len(args))
		}
		return &ast.UnaryOp{Token: tok, Kind: ast.CurrentDate}
	case "anymatch":
		return p.collection(tok, ast.AnyMatch, args)
	case "allmatch":
		return p.collection(tok, ast.AllMatch, args)
	case "nonematch":
		return p.collection(tok, ast.NoneMatch, args)
	case "filter":
		return p.collection(tok, ast.Filter, args)
	case "map":
		return p.collection(tok, ast.Map, args)
	case "hassize":
		return p.collection(tok, ast.HasSize, args)
	case "digitscheck":
		if len(args) != 3 {
			return p.arityError(tok, name, "3", len(args))
		}
		return &ast.NaryOp{Token: tok, Kind: ast.DigitsCheck, Operands: args}
	case "isdictionaryvalue":
		if len(args) != 2 && len(args) != 3 {
			return p.arityError(tok, name, "2 or 3", len(args))
		}
		return &ast.NaryOp{Token: tok, Kind: ast.IsDictionaryValue, Operands: args}
	case "call":
		return p.methodCall(tok, args)
	default:
		warning := "unknown function '" + name + "'"
		if suggestion := serrors.FindClosestMatch(name, operatorNames); suggestion != "" {
			warning += " (did you mean '" + suggestion + "'?)"
		}
		p.warnings = append(p.warnings, warning)
		return &ast.MethodCall{Token: tok, Method: name, Args: args, Unknown: true}
	}
}

func (p *Parser) unary(tok lexer.Token, kind ast.UnaryKind, args []ast.Expression) ast.Expression {
	if len(args) != 1 {
		return p.arityError(tok, kind.String(), "1", len(args))
	}
	return &ast.UnaryOp{Token: tok, Kind: kind, Operand: args[0]}
}

func (p *Parser) binary(tok lexer.Token, kind ast.BinaryKind, args []ast.Expression) ast.Expression {
	if len(args) != 2 {
		return p.arityError(tok, kind.String(), "2", len(args))
	}
	return &ast.BinaryOp{Token: tok, Kind: kind, Left: args[0], Right: args[1]}
}

func (p *Parser) nary(tok lexer.Token, kind ast.NaryKind, args []ast.Expression, minArgs int) ast.Expression {
	if len(args) < minArgs {
		return p.arityError(tok, kind.String(), "at least "+strconv.Itoa(minArgs), len(args))
	}
	return &ast.NaryOp{Token: tok, Kind: kind, Operands: args}
}

func (p *Parser) collection(tok lexer.Token, kind ast.CollectionKind, args []ast.Expression) ast.Expression {
	if len(args) != 2 {
		return p.arityError(tok, kind.String(), "2", len(args))
	}
	return &ast.CollectionPredicate{Token: tok, Kind: kind, Collection: args[0], Predicate: args[1]}
}

// methodCall parses call(target, methodName, args...). The method name is
// written bare (call(field, length)), so it arrives here parsed as a
// single-segment field reference.
func (p *Parser) methodCall(tok lexer.Token, args []ast.Expression) ast.Expression {
	if len(args) < 2 {
		return p.arityError(tok, "call", "at least 2", len(args))
	}
	ref, ok := args[1].(*ast.FieldRef)
	if !ok || ref.Scope != ast.ScopeField || len(ref.Path) != 1 {
		p.addError("PARSE-0009", tok, nil)
		return nil
	}
	return &ast.MethodCall{Token: tok, Target: args[0], Method: ref.Path[0], Args: args[2:]}
}

func (p *Parser) arityError(tok lexer.Token, name, want string, got int) ast.Expression {
	p.addError("PARSE-0005", tok, map[string]any{"Function": name, "Want": want, "Got": got})
	return nil
}
