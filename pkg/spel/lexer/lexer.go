package lexer

import "fmt"

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT  // productCd, rootBean, #this, parent$2
	INT    // 10410001
	FLOAT  // 123.45
	STRING // "КН"

	// Operators
	MINUS // - (numeric sign, folded into literals by the parser)

	// Delimiters
	COMMA    // ,
	DOT      // .
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Keywords
	TRUE  // true, True, TRUE
	FALSE // false, False, FALSE
	NULL  // null, Null, NULL
	THIS  // this
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Offset  int // byte offset in the source (for error messages)
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Offset: %d}", t.Type.String(), t.Literal, t.Offset)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case INT:
		return "INT"
	case FLOAT:
		return "FLOAT"
	case STRING:
		return "STRING"
	case MINUS:
		return "MINUS"
	case COMMA:
		return "COMMA"
	case DOT:
		return "DOT"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	case TRUE:
		return "TRUE"
	case FALSE:
		return "FALSE"
	case NULL:
		return "NULL"
	case THIS:
		return "THIS"
	default:
		return "UNKNOWN"
	}
}

// Keywords map for identifying language keywords.
// Schema authors write boolean and null literals in several case variants;
// only these exact spellings are keywords, anything else is an identifier.
var keywords = map[string]TokenType{
	"true":  TRUE,
	"True":  TRUE,
	"TRUE":  TRUE,
	"false": FALSE,
	"False": FALSE,
	"FALSE": FALSE,
	"null":  NULL,
	"Null":  NULL,
	"NULL":  NULL,
	"this":  THIS,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Lexer represents the lexical analyzer for SpEL condition expressions
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position.
// Expressions are ASCII apart from string literal contents, which are
// passed through byte-for-byte, so no rune decoding is needed.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL represents EOF
		l.position = l.readPosition
		return
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Offset: l.position, Line: l.line, Column: l.column}

	switch l.ch {
	case '(':
		tok.Type, tok.Literal = LPAREN, "("
	case ')':
		tok.Type, tok.Literal = RPAREN, ")"
	case ',':
		tok.Type, tok.Literal = COMMA, ","
	case '.':
		tok.Type, tok.Literal = DOT, "."
	case '[':
		tok.Type, tok.Literal = LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = RBRACKET, "]"
	case '-':
		tok.Type, tok.Literal = MINUS, "-"
	case '"':
		literal, terminated := l.readString()
		if !terminated {
			tok.Type = ILLEGAL
			tok.Literal = `"` + literal
			return tok
		}
		tok.Type = STRING
		tok.Literal = literal
		return tok
	case 0:
		tok.Type, tok.Literal = EOF, ""
	default:
		if isIdentStart(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		}
		if isDigit(l.ch) {
			tok.Type, tok.Literal = l.readNumber()
			return tok
		}
		tok.Type = ILLEGAL
		tok.Literal = string(l.ch)
	}

	l.readChar()
	return tok
}

// skipWhitespace skips spaces, tabs, and newlines (insignificant outside strings)
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readIdentifier reads an identifier.
// '#' and '$' are allowed for SpEL-style variable and bean prefixes
// (#rootBean, parent$2); '#' only as the leading character.
func (l *Lexer) readIdentifier() string {
	position := l.position
	l.readChar() // consume the start character, already validated
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or decimal literal
func (l *Lexer) readNumber() (TokenType, string) {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	// A '.' followed by a digit makes this a decimal literal; a '.' followed
	// by anything else belongs to the enclosing context (never valid after a
	// number in this grammar, but the parser produces the better error).
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
		return FLOAT, l.input[position:l.position]
	}
	return INT, l.input[position:l.position]
}

// readString reads a double-quoted string literal with backslash escapes.
// Returns the unescaped contents and whether the closing quote was found.
func (l *Lexer) readString() (string, bool) {
	var out []byte
	for {
		l.readChar()
		switch l.ch {
		case '"':
			l.readChar() // consume closing quote
			return string(out), true
		case 0:
			return string(out), false
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case 0:
				return string(out), false
			default:
				// Unknown escape: keep the character as written
				out = append(out, l.ch)
			}
		default:
			out = append(out, l.ch)
		}
	}
}

func isIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$' || ch == '#'
}

func isIdentPart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
