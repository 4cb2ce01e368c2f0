package evaluator

import (
	"testing"
	"time"

	"github.com/avolkov/spector/pkg/spel/ast"
	"github.com/avolkov/spector/pkg/spel/lexer"
	"github.com/avolkov/spector/pkg/spel/parser"
)

// fakeDicts is a minimal in-memory DictionaryService for tests
type fakeDicts map[string]map[string]bool

func (f fakeDicts) Has(name string) bool { _, ok := f[name]; return ok }
func (f fakeDicts) Contains(name, value string) bool {
	return f[name][value]
}

func testEval(t *testing.T, input string, data map[string]any) Object {
	t.Helper()
	return testEvalEnv(t, input, data, testEnv())
}

func testEvalEnv(t *testing.T, input string, data map[string]any, env *Env) Object {
	t.Helper()
	p := parser.New(lexer.New(input))
	expr, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error for %q: %s", input, err)
	}
	return Eval(expr, NewContext(FromJSON(data)), env)
}

func testEnv() *Env {
	env := NewEnv()
	// Fixed clock: 2024-06-15
	env.Now = func() time.Time { return time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC) }
	env.Dicts = fakeDicts{
		"currencies":   {"RUB": true, "USD": true, "EUR": true},
		"productTypes": {"КН": true, "ИП": true},
	}
	return env
}

func expectBool(t *testing.T, input string, data map[string]any, expected bool) {
	t.Helper()
	result := testEval(t, input, data)
	b, ok := result.(*Boolean)
	if !ok {
		t.Fatalf("input %q: expected BOOLEAN, got %s (%s)", input, result.Type(), result.Inspect())
	}
	if b.Value != expected {
		t.Errorf("input %q: expected %t, got %t", input, expected, b.Value)
	}
}

func expectError(t *testing.T, input string, data map[string]any, code string) {
	t.Helper()
	result := testEval(t, input, data)
	errObj, ok := result.(*Error)
	if !ok {
		t.Fatalf("input %q: expected error %s, got %s (%s)", input, code, result.Type(), result.Inspect())
	}
	if errObj.Err.Code != code {
		t.Errorf("input %q: expected code %s, got %s (%s)", input, code, errObj.Err.Code, errObj.Err.Message)
	}
}

func TestEquality(t *testing.T) {
	data := map[string]any{
		"productCd": 10410001,
		"rate":      12.5,
		"whole":     float64(100),
		"name":      "Анна",
		"code":      "10410001",
		"flag":      true,
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"eq(this.productCd, 10410001)", true},
		{"eq(this.productCd, 10410002)", false},
		{"eq(this.rate, 12.5)", true},
		// Integer literal equals whole decimal value
		{"eq(this.whole, 100)", true},
		{"eq(100, 100.0)", true},
		{"eq(this.name, \"Анна\")", true},
		// A numeric string never equals a number
		{"eq(this.code, 10410001)", false},
		{"eq(this.flag, true)", true},
		{"eq(this.flag, false)", false},
		// null equals only null
		{"eq(this.missing, null)", true},
		{"eq(this.productCd, null)", false},
		{"eq(null, null)", true},
		{"notEq(this.productCd, 10410002)", true},
		{"notEq(this.productCd, 10410001)", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestOrdering(t *testing.T) {
	data := map[string]any{"amount": 500, "rate": 1.5, "name": "b"}

	tests := []struct {
		input    string
		expected bool
	}{
		{"eqOrGreater(this.amount, 500)", true},
		{"eqOrGreater(this.amount, 501)", false},
		{"eqOrLess(this.amount, 500)", true},
		{"eqOrLess(this.amount, 499)", false},
		{"eqOrGreater(this.rate, 1)", true},
		{"eqOrGreater(this.name, \"a\")", true},
		{"eqOrLess(this.name, \"a\")", false},
		// A null operand orders as false, not an error
		{"eqOrGreater(this.missing, 1)", false},
		{"eqOrLess(this.missing, 1)", false},
		{"eqOrGreater(1, this.missing)", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestOrderingTypeMismatch(t *testing.T) {
	data := map[string]any{"amount": 500, "name": "b", "flag": true}

	// Two present values of mismatched types do not order as false: the
	// condition is miswired and the error must reach the caller.
	inputs := []string{
		"eqOrGreater(this.name, 1)",
		"eqOrLess(this.name, 1)",
		"eqOrGreater(this.amount, \"500\")",
		"eqOrGreater(this.flag, true)",
		"eqOrLess(this.flag, false)",
	}
	for _, input := range inputs {
		expectError(t, input, data, "EVAL-0001")
	}

	// A guard keeps the mismatch unreachable
	expectBool(t, "and(notNull(this.missing), eqOrGreater(this.name, 1))", data, false)
}

func TestNullChecks(t *testing.T) {
	data := map[string]any{
		"present": 1,
		"empty":   "",
		"spaces":  "   ",
		"text":    "x",
		"nothing": nil,
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"isNull(this.missing)", true},
		{"isNull(this.nothing)", true},
		{"isNull(this.present)", false},
		{"notNull(this.present)", true},
		{"notNull(this.missing)", false},
		{"isBlank(this.missing)", true},
		{"isBlank(this.empty)", true},
		{"isBlank(this.spaces)", true},
		{"isBlank(this.text)", false},
		{"notBlank(this.text)", true},
		{"notBlank(this.empty)", false},
		// Numbers are never blank
		{"isBlank(this.present)", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestShortCircuit(t *testing.T) {
	data := map[string]any{"a": 1}

	// The second operand would fail with a type error if evaluated
	expectBool(t, "and(eq(this.a, 2), not(this.a))", data, false)
	expectBool(t, "or(eq(this.a, 1), not(this.a))", data, true)

	// Without a guard the type error surfaces
	expectError(t, "and(eq(this.a, 1), not(this.a))", data, "EVAL-0001")
	expectError(t, "or(eq(this.a, 2), not(this.a))", data, "EVAL-0001")

	expectBool(t, "and(true, true, true)", data, true)
	expectBool(t, "and(true, false, true)", data, false)
	expectBool(t, "or(false, false, true)", data, true)
	expectBool(t, "or(false, false)", data, false)
}

func TestMembership(t *testing.T) {
	data := map[string]any{
		"productCd": 10410001,
		"type":      "КН",
		"codes":     []any{1, 2, 3},
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"in(this.productCd, 10410001, 10410002)", true},
		{"in(this.productCd, 10410002, 10410003)", false},
		{"in(this.productCd, [10410001, 10410002])", true},
		{"in(this.type, \"КН\", \"ИП\")", true},
		{"in(this.type, \"ПК\")", false},
		// No cross-type coercion in membership
		{"in(this.productCd, \"10410001\")", false},
		{"notIn(this.productCd, 10410002)", true},
		{"notIn(this.productCd, 10410001)", false},
		{"containsAll(this.codes, [1, 2])", true},
		{"containsAll(this.codes, [1, 4])", false},
		{"containsAll(this.codes, [])", true},
		{"containsAll(this.missing, [1])", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestScopes(t *testing.T) {
	root := FromJSON(map[string]any{
		"requestId": "r-1",
		"contract":  map[string]any{"number": "c-42"},
	})
	parent := FromJSON(map[string]any{"limit": 1000})
	data := FromJSON(map[string]any{"amount": 500})

	ctx := NewContext(root).Descend(parent).Descend(data)
	env := testEnv()

	tests := []struct {
		input    string
		expected bool
	}{
		{"eq(this.amount, 500)", true},
		{"eq(amount, 500)", true},
		{"eq(parent.limit, 1000)", true},
		{"eq(parent2.requestId, \"r-1\")", true},
		{"eq(root.requestId, \"r-1\")", true},
		{"eq(rootBean.contract.number, \"c-42\")", true},
		// Safe navigation through missing and non-object values
		{"isNull(this.missing.deeply.nested)", true},
		{"isNull(this.amount.sub)", true},
		{"isNull(parent.nothing)", true},
	}

	for _, tt := range tests {
		p := parser.New(lexer.New(tt.input))
		expr, err := p.Parse()
		if err != nil {
			t.Fatalf("parse error for %q: %s", tt.input, err)
		}
		result := Eval(expr, ctx, env)
		b, ok := result.(*Boolean)
		if !ok {
			t.Fatalf("input %q: expected BOOLEAN, got %s (%s)", tt.input, result.Type(), result.Inspect())
		}
		if b.Value != tt.expected {
			t.Errorf("input %q: expected %t, got %t", tt.input, tt.expected, b.Value)
		}
	}
}

func TestUnboundParent(t *testing.T) {
	data := map[string]any{"a": 1}

	// Root context has no ancestors at all
	expectError(t, "eq(parent.a, 1)", data, "EVAL-0002")
	expectError(t, "eq(parent3.a, 1)", data, "EVAL-0002")

	// One ancestor: parent works, parent2 does not
	ctx := NewContext(FromJSON(map[string]any{"limit": 9})).Descend(FromJSON(data))
	env := testEnv()

	p := parser.New(lexer.New("eq(parent.limit, 9)"))
	expr, _ := p.Parse()
	if result := Eval(expr, ctx, env); result != TRUE {
		t.Errorf("parent.limit: expected true, got %s", result.Inspect())
	}

	p = parser.New(lexer.New("eq(parent2.limit, 9)"))
	expr, _ = p.Parse()
	result := Eval(expr, ctx, env)
	errObj, ok := result.(*Error)
	if !ok || errObj.Err.Code != "EVAL-0002" {
		t.Fatalf("parent2: expected EVAL-0002, got %s", result.Inspect())
	}
}

func TestTaxNumberValidation(t *testing.T) {
	data := map[string]any{
		"inn10":  "7707083893", // Sberbank
		"inn12":  "500100732259",
		"number": 7707083893, // same INN, numerically typed
		"rate":   12.5,
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"isValidTaxNum(this.inn10)", true},
		{"isValidTaxNum(this.inn12)", true},
		{"isValidTaxNum(\"7707083893\")", true},
		{"isValidTaxNum(\"500100732259\")", true},
		// An integer-typed field validates the same as its string form
		{"isValidTaxNum(this.number)", true},
		{"isValidTaxNum(7707083894)", false},
		// Wrong check digit
		{"isValidTaxNum(\"7707083894\")", false},
		{"isValidTaxNum(\"500100732258\")", false},
		// Wrong length, non-digits, null, non-numeric types
		{"isValidTaxNum(\"77070838\")", false},
		{"isValidTaxNum(\"77070838931\")", false},
		{"isValidTaxNum(\"77070838aa\")", false},
		{"isValidTaxNum(\"\")", false},
		{"isValidTaxNum(this.missing)", false},
		{"isValidTaxNum(this.rate)", false},
		{"isValidTaxNum(true)", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

// Any single-digit mutation of a valid INN must fail the checksum.
func TestTaxNumberMutations(t *testing.T) {
	for _, valid := range []string{"7707083893", "500100732259"} {
		for pos := 0; pos < len(valid); pos++ {
			for d := byte('0'); d <= '9'; d++ {
				if valid[pos] == d {
					continue
				}
				mutated := valid[:pos] + string(d) + valid[pos+1:]
				if isValidINN(mutated) {
					t.Errorf("mutation %q of %q unexpectedly valid", mutated, valid)
				}
			}
		}
	}
}

func TestUUIDValidation(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"isValidUuid(\"123e4567-e89b-12d3-a456-426614174000\")", true},
		{"isValidUuid(\"123E4567-E89B-12D3-A456-426614174000\")", true},
		{"isValidUuid(\"123e4567e89b12d3a456426614174000\")", false},
		{"isValidUuid(\"{123e4567-e89b-12d3-a456-426614174000}\")", false},
		{"isValidUuid(\"123e4567-e89b-12d3-a456-42661417400\")", false},
		{"isValidUuid(\"not-a-uuid\")", false},
		{"isValidUuid(this.missing)", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, nil, tt.expected)
	}
}

func TestDigitsCheck(t *testing.T) {
	data := map[string]any{
		"fits":     123.45,
		"intOnly":  12345,
		"tooWide":  1234.5,
		"tooDeep":  1.234,
		"negative": -123.45,
		"strNum":   "99.9",
		"word":     "abc",
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"digitsCheck(this.fits, 3, 2)", true},
		{"digitsCheck(this.intOnly, 5, 0)", true},
		{"digitsCheck(this.intOnly, 4, 0)", false},
		{"digitsCheck(this.tooWide, 3, 2)", false},
		{"digitsCheck(this.tooDeep, 3, 2)", false},
		// The sign does not count as a digit
		{"digitsCheck(this.negative, 3, 2)", true},
		{"digitsCheck(this.strNum, 2, 1)", true},
		{"digitsCheck(this.strNum, 1, 1)", false},
		{"digitsCheck(this.word, 3, 2)", false},
		// Absent value passes: presence is isNull's business
		{"digitsCheck(this.missing, 3, 2)", true},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestDictionaryMembership(t *testing.T) {
	data := map[string]any{
		"currency": "RUB",
		"bogus":    "XXX",
		"empty":    "",
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"isDictionaryValue(\"currencies\", this.currency)", true},
		{"isDictionaryValue(\"currencies\", this.bogus)", false},
		{"isDictionaryValue(\"unknownDict\", this.currency)", false},
		// Blank values fail unless allowEmpty is set
		{"isDictionaryValue(\"currencies\", this.empty)", false},
		{"isDictionaryValue(\"currencies\", this.empty, true)", true},
		{"isDictionaryValue(\"currencies\", this.missing)", false},
		{"isDictionaryValue(\"currencies\", this.missing, true)", true},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestCollectionPredicates(t *testing.T) {
	data := map[string]any{
		"accounts": []any{
			map[string]any{"status": "OPEN", "balance": 100},
			map[string]any{"status": "CLOSED", "balance": 0},
			map[string]any{"status": "OPEN", "balance": 50},
		},
		"empty": []any{},
		"nums":  []any{1, 2, 3},
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"anyMatch(this.accounts, eq(status, \"OPEN\"))", true},
		{"anyMatch(this.accounts, eq(status, \"FROZEN\"))", false},
		{"allMatch(this.accounts, notNull(status))", true},
		{"allMatch(this.accounts, eq(status, \"OPEN\"))", false},
		{"noneMatch(this.accounts, eq(status, \"FROZEN\"))", true},
		{"noneMatch(this.accounts, eq(status, \"OPEN\"))", false},
		// Vacuous truth on empty and null collections
		{"anyMatch(this.empty, eq(status, \"OPEN\"))", false},
		{"allMatch(this.empty, eq(status, \"OPEN\"))", true},
		{"noneMatch(this.empty, eq(status, \"OPEN\"))", true},
		{"anyMatch(this.missing, eq(status, \"OPEN\"))", false},
		{"allMatch(this.missing, eq(status, \"OPEN\"))", true},
		{"hasSize(this.accounts, 3)", true},
		{"hasSize(this.accounts, 2)", false},
		{"hasSize(this.empty, 0)", true},
		{"hasSize(this.missing, 0)", true},
		{"notEmptyList(this.accounts)", true},
		{"notEmptyList(this.empty)", false},
		{"notEmptyList(this.missing)", false},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestFilterAndMap(t *testing.T) {
	data := map[string]any{
		"accounts": []any{
			map[string]any{"status": "OPEN", "balance": 100},
			map[string]any{"status": "CLOSED", "balance": 0},
		},
	}

	result := testEval(t, "filter(this.accounts, eq(status, \"OPEN\"))", data)
	arr, ok := result.(*Array)
	if !ok || len(arr.Elements) != 1 {
		t.Fatalf("filter: expected 1 element, got %s", result.Inspect())
	}

	result = testEval(t, "map(this.accounts, status)", data)
	arr, ok = result.(*Array)
	if !ok || len(arr.Elements) != 2 {
		t.Fatalf("map: expected 2 elements, got %s", result.Inspect())
	}
	if arr.Elements[0].Inspect() != "OPEN" || arr.Elements[1].Inspect() != "CLOSED" {
		t.Errorf("map: got %s", arr.Inspect())
	}

	// hasSize over filter composes
	expectBool(t, "hasSize(filter(this.accounts, eq(status, \"OPEN\")), 1)", data, true)
}

// Inside a collection predicate, parent still means the parent of the
// collection's owner, not the owning object itself.
func TestCollectionPredicateScoping(t *testing.T) {
	root := FromJSON(map[string]any{"maxBalance": 100})
	data := FromJSON(map[string]any{
		"accounts": []any{
			map[string]any{"balance": 50},
			map[string]any{"balance": 100},
		},
	})

	ctx := NewContext(root).Descend(data)
	env := testEnv()

	p := parser.New(lexer.New("allMatch(this.accounts, eqOrLess(balance, parent.maxBalance))"))
	expr, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	result := Eval(expr, ctx, env)
	if result != TRUE {
		t.Fatalf("expected true, got %s", result.Inspect())
	}
}

func TestDateArithmetic(t *testing.T) {
	data := map[string]any{
		"birthDt": "2010-06-15",
		"openDt":  "2024-01-10",
		"leapDt":  "2024-02-29",
	}

	tests := []struct {
		input    string
		expected bool
	}{
		// Clock is fixed at 2024-06-15: someone born 2010-06-15 is exactly 14
		{"eqOrLess(call(this.birthDt, toLocalDate), call(currentDate(), minusYears, 14))", true},
		{"eqOrLess(call(this.birthDt, toLocalDate), call(currentDate(), minusYears, 15))", false},
		{"eq(call(currentDate(), minusYears, 14), call(this.birthDt, toLocalDate))", true},
		{"eq(call(call(this.openDt, toLocalDate), plusDays, 5), call(\"2024-01-15\", toLocalDate))", true},
		{"eq(call(call(this.openDt, toLocalDate), minusDays, 10), call(\"2023-12-31\", toLocalDate))", true},
		// Feb 29 minus one year clamps to Feb 28
		{"eq(call(call(this.leapDt, toLocalDate), minusYears, 1), call(\"2023-02-28\", toLocalDate))", true},
		// Feb 29 minus four years stays Feb 29
		{"eq(call(call(this.leapDt, toLocalDate), minusYears, 4), call(\"2020-02-29\", toLocalDate))", true},
		{"call(call(this.openDt, toLocalDate), isAfter, call(\"2024-01-01\", toLocalDate))", true},
		{"call(call(this.openDt, toLocalDate), isBefore, call(\"2024-01-01\", toLocalDate))", false},
		{"eq(call(this.missing, toLocalDate), null)", true},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, data, tt.expected)
	}
}

func TestStringMethods(t *testing.T) {
	data := map[string]any{"name": "  Анна  ", "code": "abc"}

	result := testEval(t, "call(this.code, length)", data)
	if i, ok := result.(*Integer); !ok || i.Value != 3 {
		t.Fatalf("length: got %s", result.Inspect())
	}

	// Length counts runes, not bytes
	result = testEval(t, "call(\"Анна\", length)", data)
	if i, ok := result.(*Integer); !ok || i.Value != 4 {
		t.Fatalf("cyrillic length: got %s", result.Inspect())
	}

	expectBool(t, "eq(call(this.code, toUpperCase), \"ABC\")", data, true)
	expectBool(t, "eq(call(this.name, trim), \"Анна\")", data, true)
	expectBool(t, "eq(call(\"2010-06-15\", compareTo, \"2010-06-16\"), -1)", data, true)
}

func TestEvaluationErrors(t *testing.T) {
	data := map[string]any{"n": 1, "s": "x"}

	tests := []struct {
		input string
		code  string
	}{
		{"not(this.n)", "EVAL-0001"},
		{"and(this.n, true)", "EVAL-0001"},
		{"size(this.n)", "EVAL-0001"},
		{"anyMatch(this.n, eq(a, 1))", "EVAL-0001"},
		{"futureOp(this.n)", "EVAL-0003"},
		{"call(this.s, bogusMethod)", "EVAL-0003"},
		{"call(this.s, length, 1)", "EVAL-0004"},
	}

	for _, tt := range tests {
		expectError(t, tt.input, data, tt.code)
	}
}

func TestEvalDepthLimit(t *testing.T) {
	// Build an AST deeper than the evaluator bound directly; the parser's own
	// bound would reject a source string this deep.
	var node ast.Expression = &ast.BooleanLiteral{Value: true}
	for i := 0; i < maxDepth+10; i++ {
		node = &ast.UnaryOp{Kind: ast.Not, Operand: node}
	}

	result := Eval(node, NewContext(NULL), testEnv())
	errObj, ok := result.(*Error)
	if !ok || errObj.Err.Code != "EVAL-0005" {
		t.Fatalf("expected EVAL-0005, got %s", result.Inspect())
	}
}

func TestEndToEndConditions(t *testing.T) {
	document := map[string]any{
		"productCd":  10410001,
		"loanAmount": 500000,
		"currency":   "RUB",
		"client": map[string]any{
			"inn":     "7707083893",
			"birthDt": "1990-03-01",
		},
	}

	tests := []struct {
		input    string
		expected bool
	}{
		{"and(eq(this.productCd, 10410001), notNull(this.loanAmount))", true},
		{"and(eq(this.productCd, 10410002), notNull(this.loanAmount))", false},
		{"and(eq(this.productCd, 10410001), notNull(this.missing))", false},
		{"or(eq(this.productCd, 10410001), isValidTaxNum(this.client.inn))", true},
		{"and(isDictionaryValue(\"currencies\", this.currency), isValidTaxNum(this.client.inn))", true},
	}

	for _, tt := range tests {
		expectBool(t, tt.input, document, tt.expected)
	}
}
