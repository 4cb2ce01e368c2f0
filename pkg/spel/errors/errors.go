// Package errors provides structured error types for the SpEL condition
// engine.
//
// This package defines SpelError, a unified error type covering both
// compilation (lexing/parsing) and evaluation errors, with enough metadata
// for display and programmatic handling. Compilation errors abort the whole
// expression; evaluation errors abort a single evaluation call, and the
// caller decides whether that means "not required" or "needs review".
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Lexer/parser errors
	ClassType      ErrorClass = "type"      // Operand type mismatches
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassUndefined ErrorClass = "undefined" // Unknown function, unbound parent
	ClassState     ErrorClass = "state"     // Recursion limits, invalid engine state
)

// SpelError represents any error from compiling or evaluating an expression.
type SpelError struct {
	Class   ErrorClass     `json:"class"`            // Error category
	Code    string         `json:"code"`             // Error code (e.g., "EVAL-0001")
	Message string         `json:"message"`          // Human-readable message
	Hints   []string       `json:"hints,omitempty"`  // Suggestions for fixing
	Offset  int            `json:"offset"`           // Byte offset in the expression (-1 if unknown)
	Line    int            `json:"line"`             // 1-based line (0 if unknown)
	Column  int            `json:"column"`           // 1-based column (0 if unknown)
	Source  string         `json:"source,omitempty"` // Where the expression came from (schema path)
	Data    map[string]any `json:"data,omitempty"`   // Template variables
}

// Error implements the error interface.
func (e *SpelError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *SpelError) String() string {
	var sb strings.Builder

	if e.Source != "" {
		sb.WriteString(e.Source)
		sb.WriteString(": ")
	}
	if e.Offset >= 0 {
		sb.WriteString(fmt.Sprintf("offset %d: ", e.Offset))
	}
	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *SpelError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithSource returns a copy of the error tagged with the expression's origin
// (typically the schema field path carrying the condition).
func (e *SpelError) WithSource(source string) *SpelError {
	copy := *e
	copy.Source = source
	return &copy
}

// IsParseError returns true if this is a compilation error.
func (e *SpelError) IsParseError() bool {
	return e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Compilation errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unterminated string",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "invalid number literal: {{.Literal}}",
	},
	"PARSE-0005": {
		Class:    ClassArity,
		Template: "{{.Function}} takes {{.Want}} argument(s), got {{.Got}}",
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "unexpected input after expression: '{{.Token}}'",
	},
	"PARSE-0007": {
		Class:    ClassState,
		Template: "expression nesting exceeds the maximum depth of {{.Max}}",
	},
	"PARSE-0008": {
		Class:    ClassParse,
		Template: "unrecognized character '{{.Char}}'",
	},
	"PARSE-0009": {
		Class:    ClassParse,
		Template: "call() requires a method name as its second argument",
		Hints:    []string{"call(field, length)", "call(birthDt, minusYears, 14)"},
	},

	// ========================================
	// Evaluation errors (EVAL-0xxx)
	// ========================================
	"EVAL-0001": {
		Class:    ClassType,
		Template: "{{.Operator}}: expected {{.Expected}}, got {{.Got}}",
	},
	"EVAL-0002": {
		Class:    ClassUndefined,
		Template: "parent{{.Level}} is not bound: only {{.Have}} ancestor(s) in context",
	},
	"EVAL-0003": {
		Class:    ClassUndefined,
		Template: "unknown function '{{.Name}}'",
	},
	"EVAL-0004": {
		Class:    ClassArity,
		Template: "{{.Method}} takes {{.Want}} argument(s), got {{.Got}}",
	},
	"EVAL-0005": {
		Class:    ClassState,
		Template: "evaluation exceeds the maximum depth of {{.Max}}",
	},
	"EVAL-0006": {
		Class:    ClassType,
		Template: "result of '{{.Expression}}' is {{.Got}}, expected boolean",
	},
}

// New creates a SpelError from the catalog.
func New(code string, data map[string]any) *SpelError {
	def, ok := ErrorCatalog[code]
	if !ok {
		return &SpelError{
			Class:   ClassState,
			Code:    code,
			Message: code,
			Offset:  -1,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &SpelError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Offset:  -1,
		Data:    data,
	}
}

// NewAt creates a SpelError from the catalog with position information.
func NewAt(code string, offset, line, column int, data map[string]any) *SpelError {
	err := New(code, data)
	err.Offset = offset
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates an error without using the catalog.
func NewSimple(class ErrorClass, message string) *SpelError {
	return &SpelError{
		Class:   class,
		Message: message,
		Offset:  -1,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to the given string from
// candidates, for "did you mean?" hints on unknown function names. Returns
// the best match if the distance is within a length-dependent threshold,
// otherwise an empty string.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}
