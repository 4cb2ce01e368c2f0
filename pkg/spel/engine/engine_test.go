package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/spector/pkg/spel/evaluator"
)

type fakeDicts map[string]map[string]bool

func (f fakeDicts) Has(name string) bool             { _, ok := f[name]; return ok }
func (f fakeDicts) Contains(name, value string) bool { return f[name][value] }

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithDictionaries(fakeDicts{"currencies": {"RUB": true, "USD": true}}),
		WithClock(func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }),
	}
	return New(append(base, opts...)...)
}

func TestEvaluateBool(t *testing.T) {
	e := newTestEngine()
	document := map[string]any{
		"productCd":  10410001,
		"loanAmount": 500000,
		"currency":   "RUB",
	}

	tests := []struct {
		source   string
		expected bool
	}{
		{"and(eq(this.productCd, 10410001), notNull(this.loanAmount))", true},
		{"and(eq(this.productCd, 10410001), notNull(this.collateral))", false},
		{"isDictionaryValue(\"currencies\", this.currency)", true},
		{"eqOrGreater(this.loanAmount, 100000)", true},
	}

	for _, tt := range tests {
		got, err := e.EvaluateBool(tt.source, document)
		if err != nil {
			t.Fatalf("source %q: unexpected error: %s", tt.source, err)
		}
		if got != tt.expected {
			t.Errorf("source %q: expected %t, got %t", tt.source, tt.expected, got)
		}
	}
}

func TestEvaluateBoolRejectsNonBoolean(t *testing.T) {
	e := newTestEngine()

	_, err := e.EvaluateBool("size(this.items)", map[string]any{"items": []any{1, 2}})
	if err == nil {
		t.Fatal("expected an error for a non-boolean result")
	}
	if err.Code != "EVAL-0006" {
		t.Errorf("expected EVAL-0006, got %s", err.Code)
	}
}

func TestCompileErrorsSurface(t *testing.T) {
	e := newTestEngine()

	_, err := e.EvaluateBool("eq(a,", nil)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !err.IsParseError() {
		t.Errorf("expected a parse-class error, got %s", err.Class)
	}

	// Parse errors are not cached
	if e.CacheSize() != 0 {
		t.Errorf("expected empty cache, got %d entries", e.CacheSize())
	}
}

func TestCompileCache(t *testing.T) {
	e := newTestEngine()
	source := "eq(this.a, 1)"

	first, err := e.Compile(source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	second, err := e.Compile(source)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if first != second {
		t.Error("expected the cached AST to be reused")
	}
	if e.CacheSize() != 1 {
		t.Errorf("expected 1 cache entry, got %d", e.CacheSize())
	}
}

func TestUnknownFunctionWarningLogged(t *testing.T) {
	logger := NewBufferedLogger()
	e := newTestEngine(WithLogger(logger))

	if _, err := e.Compile("futureOp(this.a)"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	lines := logger.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "futureOp") {
		t.Fatalf("expected a warning naming futureOp, got %v", lines)
	}

	// Evaluating the unknown call is the hard failure
	_, evalErr := e.EvaluateBool("futureOp(this.a)", nil)
	if evalErr == nil || evalErr.Code != "EVAL-0003" {
		t.Fatalf("expected EVAL-0003, got %v", evalErr)
	}
}

func TestEvaluateInContext(t *testing.T) {
	e := newTestEngine()

	root := evaluator.FromJSON(map[string]any{"requestId": "r-1"})
	child := evaluator.FromJSON(map[string]any{"amount": 500})
	ctx := evaluator.NewContext(root).Descend(child)

	got, err := e.EvaluateBoolInContext("and(eq(this.amount, 500), notNull(parent.requestId))", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !got {
		t.Error("expected true")
	}

	_, err = e.EvaluateBoolInContext("notNull(parent2.requestId)", ctx)
	if err == nil || err.Code != "EVAL-0002" {
		t.Fatalf("expected EVAL-0002, got %v", err)
	}
}

func TestFixedClock(t *testing.T) {
	e := newTestEngine()

	got, err := e.EvaluateBool(
		"eq(currentDate(), call(\"2024-06-15\", toLocalDate))", nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !got {
		t.Error("expected the fixed clock date")
	}
}

func TestConcurrentEvaluation(t *testing.T) {
	e := newTestEngine()
	document := map[string]any{"productCd": 10410001}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := e.EvaluateBool("eq(this.productCd, 10410001)", document)
				if err != nil || !got {
					t.Errorf("unexpected result: %v %v", got, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if e.CacheSize() != 1 {
		t.Errorf("expected 1 cache entry, got %d", e.CacheSize())
	}
}
