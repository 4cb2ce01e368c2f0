// Package engine is the embedding API for the condition language: compile
// with caching, evaluate against document contexts, and coerce results to
// the boolean answers the schema checker needs.
package engine

import (
	"sync"
	"time"

	"github.com/avolkov/spector/pkg/spel/ast"
	serrors "github.com/avolkov/spector/pkg/spel/errors"
	"github.com/avolkov/spector/pkg/spel/evaluator"
	"github.com/avolkov/spector/pkg/spel/lexer"
	"github.com/avolkov/spector/pkg/spel/parser"
)

// Option configures an Engine
type Option func(*Engine)

// WithDictionaries sets the dictionary service used by isDictionaryValue
func WithDictionaries(dicts evaluator.DictionaryService) Option {
	return func(e *Engine) { e.dicts = dicts }
}

// WithLogger sets the diagnostics logger
func WithLogger(logger Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock fixes the clock behind currentDate(), for reproducible runs
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// Engine compiles and evaluates condition expressions. Compiled ASTs are
// cached by source text: a maintenance run evaluates the same few hundred
// schema conditions against many scenario documents, so the cache turns
// parsing into a once-per-condition cost.
//
// An Engine is safe for concurrent use. ASTs are immutable; each evaluation
// gets its own environment.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]ast.Expression

	dicts  evaluator.DictionaryService
	logger Logger
	clock  func() time.Time
}

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{
		cache:  make(map[string]ast.Expression),
		logger: NullLogger(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile parses an expression, consulting the cache first. Parse warnings
// (unknown function names) go to the logger; they do not fail compilation.
func (e *Engine) Compile(source string) (ast.Expression, *serrors.SpelError) {
	e.mu.RLock()
	cached, ok := e.cache[source]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	p := parser.New(lexer.New(source))
	expr, err := p.Parse()
	if err != nil {
		return nil, err
	}
	for _, warning := range p.Warnings() {
		e.logger.LogLine("warning:", warning, "in", source)
	}

	e.mu.Lock()
	e.cache[source] = expr
	e.mu.Unlock()
	return expr, nil
}

// Dictionaries returns the configured dictionary service, or nil
func (e *Engine) Dictionaries() evaluator.DictionaryService {
	return e.dicts
}

// CacheSize returns the number of compiled expressions held
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Evaluate compiles the expression and evaluates it against data, a decoded
// JSON value forming a root-level context.
func (e *Engine) Evaluate(source string, data any) (evaluator.Object, *serrors.SpelError) {
	ctx := evaluator.NewContext(evaluator.FromJSON(data))
	return e.EvaluateInContext(source, ctx)
}

// EvaluateInContext compiles the expression and evaluates it in an explicit
// context. The document checker builds contexts itself while walking nested
// objects, so parent scopes resolve against real ancestors.
func (e *Engine) EvaluateInContext(source string, ctx *evaluator.Context) (evaluator.Object, *serrors.SpelError) {
	expr, err := e.Compile(source)
	if err != nil {
		return nil, err
	}

	env := evaluator.NewEnv()
	env.Dicts = e.dicts
	env.Now = e.clock

	result := evaluator.Eval(expr, ctx, env)
	if errObj, ok := result.(*evaluator.Error); ok {
		return nil, errObj.Err
	}
	return result, nil
}

// EvaluateBool evaluates the expression and requires a boolean result.
// A non-boolean result is a type error: schema conditions are predicates,
// and anything else means the condition is malformed.
func (e *Engine) EvaluateBool(source string, data any) (bool, *serrors.SpelError) {
	ctx := evaluator.NewContext(evaluator.FromJSON(data))
	return e.EvaluateBoolInContext(source, ctx)
}

// EvaluateBoolInContext is EvaluateBool with an explicit context
func (e *Engine) EvaluateBoolInContext(source string, ctx *evaluator.Context) (bool, *serrors.SpelError) {
	result, err := e.EvaluateInContext(source, ctx)
	if err != nil {
		return false, err
	}
	b, ok := result.(*evaluator.Boolean)
	if !ok {
		return false, serrors.New("EVAL-0006", map[string]any{
			"Expression": source, "Got": string(result.Type()),
		})
	}
	return b.Value, nil
}
