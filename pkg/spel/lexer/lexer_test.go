package lexer

import "testing"

func TestNextToken(t *testing.T) {
	input := `and(eq(this.productCd, 10410001), in(type, "КН", "ИП"), [1, 2.5], -3)`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{IDENT, "and"},
		{LPAREN, "("},
		{IDENT, "eq"},
		{LPAREN, "("},
		{THIS, "this"},
		{DOT, "."},
		{IDENT, "productCd"},
		{COMMA, ","},
		{INT, "10410001"},
		{RPAREN, ")"},
		{COMMA, ","},
		{IDENT, "in"},
		{LPAREN, "("},
		{IDENT, "type"},
		{COMMA, ","},
		{STRING, "КН"},
		{COMMA, ","},
		{STRING, "ИП"},
		{RPAREN, ")"},
		{COMMA, ","},
		{LBRACKET, "["},
		{INT, "1"},
		{COMMA, ","},
		{FLOAT, "2.5"},
		{RBRACKET, "]"},
		{COMMA, ","},
		{MINUS, "-"},
		{INT, "3"},
		{RPAREN, ")"},
		{EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%s, got=%s (literal %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestKeywordCaseVariants(t *testing.T) {
	tests := []struct {
		input        string
		expectedType TokenType
	}{
		{"true", TRUE},
		{"True", TRUE},
		{"TRUE", TRUE},
		{"false", FALSE},
		{"False", FALSE},
		{"FALSE", FALSE},
		{"null", NULL},
		{"Null", NULL},
		{"NULL", NULL},
		{"this", THIS},
		// Other case variants are plain identifiers
		{"tRue", IDENT},
		{"This", IDENT},
		{"nULL", IDENT},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("input %q: expected type %s, got %s", tt.input, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.input {
			t.Errorf("input %q: literal changed to %q", tt.input, tok.Literal)
		}
	}
}

func TestSpelIdentifiers(t *testing.T) {
	tests := []struct {
		input           string
		expectedLiteral string
	}{
		{"#this", "#this"},
		{"#rootBean", "#rootBean"},
		{"parent$2", "parent$2"},
		{"parent3", "parent3"},
		{"_internal", "_internal"},
		{"loan_amount", "loan_amount"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != IDENT {
			t.Errorf("input %q: expected IDENT, got %s", tt.input, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Errorf("input %q: expected literal %q, got %q", tt.input, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"say \"hi\""`, `say "hi"`},
		{`"back\\slash"`, `back\slash`},
		{`""`, ""},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != STRING {
			t.Fatalf("input %q: expected STRING, got %s", tt.input, tok.Type)
		}
		if tok.Literal != tt.expected {
			t.Errorf("input %q: expected %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`eq(name, "oops`)

	var tok Token
	for i := 0; i < 10; i++ {
		tok = l.NextToken()
		if tok.Type == ILLEGAL || tok.Type == EOF {
			break
		}
	}

	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL token for unterminated string, got %s", tok.Type)
	}
	if tok.Literal != `"oops` {
		t.Errorf("expected literal %q, got %q", `"oops`, tok.Literal)
	}
}

func TestNumberLexing(t *testing.T) {
	tests := []struct {
		input        string
		expectedType TokenType
	}{
		{"0", INT},
		{"10410001", INT},
		{"3.14", FLOAT},
		{"0.5", FLOAT},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.input {
			t.Errorf("input %q: literal %q", tt.input, tok.Literal)
		}
	}
}

// A trailing dot stays out of the number so the parser can report it.
func TestNumberFollowedByDot(t *testing.T) {
	l := New("42.foo")

	tok := l.NextToken()
	if tok.Type != INT || tok.Literal != "42" {
		t.Fatalf("expected INT 42, got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != DOT {
		t.Fatalf("expected DOT, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != IDENT || tok.Literal != "foo" {
		t.Fatalf("expected IDENT foo, got %s %q", tok.Type, tok.Literal)
	}
}

func TestTokenPositions(t *testing.T) {
	l := New("eq(a,\n  b)")

	expected := []struct {
		literal string
		offset  int
		line    int
	}{
		{"eq", 0, 1},
		{"(", 2, 1},
		{"a", 3, 1},
		{",", 4, 1},
		{"b", 8, 2},
		{")", 9, 2},
	}

	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Literal != exp.literal {
			t.Fatalf("tests[%d] - literal: expected %q, got %q", i, exp.literal, tok.Literal)
		}
		if tok.Offset != exp.offset {
			t.Errorf("tests[%d] (%q) - offset: expected %d, got %d", i, exp.literal, exp.offset, tok.Offset)
		}
		if tok.Line != exp.line {
			t.Errorf("tests[%d] (%q) - line: expected %d, got %d", i, exp.literal, exp.line, tok.Line)
		}
	}
}

func TestIllegalCharacter(t *testing.T) {
	l := New("eq(a, @)")

	var tok Token
	for i := 0; i < 10; i++ {
		tok = l.NextToken()
		if tok.Type == ILLEGAL || tok.Type == EOF {
			break
		}
	}

	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if tok.Literal != "@" {
		t.Errorf("expected literal @, got %q", tok.Literal)
	}
}
