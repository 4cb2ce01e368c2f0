// Package repl implements the interactive expression shell: line editing,
// history, tab completion over the operator catalog, and commands to load a
// document and walk into it so parent scopes can be exercised by hand.
package repl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/avolkov/spector/pkg/spel/engine"
	"github.com/avolkov/spector/pkg/spel/evaluator"
)

const PROMPT = "spel> "
const CONTINUATION_PROMPT = "  ..> "

// completionWords covers the operator catalog, the scope keywords, and the
// REPL commands
var completionWords = []string{
	// Operators
	"and", "or", "not",
	"eq", "notEq", "eqOrGreater", "eqOrLess",
	"in", "notIn",
	"isNull", "notNull", "isBlank", "notBlank",
	"anyMatch", "allMatch", "noneMatch", "filter", "map", "hasSize",
	"size", "notEmptyList", "containsAll",
	"call", "currentDate",
	"isValidTaxNum", "isValidUuid", "digitsCheck", "isDictionaryValue",
	// Scopes and literals
	"this", "parent", "parent2", "parent3", "root", "rootBean",
	"true", "false", "null",
	// Methods
	"minusYears", "plusYears", "minusDays", "plusDays",
	"isAfter", "isBefore", "compareTo", "length", "toLocalDate",
	// Commands
	":load", ":descend", ":parents", ":reset", ":help", ":quit",
}

// session holds the REPL's document state: the loaded root and the chain of
// descents below it.
type session struct {
	engine *engine.Engine
	ctx    *evaluator.Context
}

// Start runs the REPL until EOF or :quit
func Start(in io.Reader, out io.Writer, version string, eng *engine.Engine) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(line string) []string {
		return filterCompletions(line)
	})

	historyFile := filepath.Join(os.TempDir(), ".spel_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	s := &session{
		engine: eng,
		ctx:    evaluator.NewContext(evaluator.NULL),
	}

	fmt.Fprintf(out, "spel %s - condition expression shell\n", version)
	fmt.Fprintln(out, "Type ':help' for commands, ':quit' or Ctrl+D to exit")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(out, "^C")
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)

		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			line.AppendHistory(trimmed)
			if quit := s.handleCommand(trimmed, out); quit {
				return
			}
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}
		inputBuffer.Reset()
		line.AppendHistory(fullInput)

		result, evalErr := s.engine.EvaluateInContext(fullInput, s.ctx)
		if evalErr != nil {
			fmt.Fprintf(out, "error [%s]: %s\n", evalErr.Code, evalErr.Message)
			for _, hint := range evalErr.Hints {
				fmt.Fprintf(out, "  %s\n", hint)
			}
			continue
		}
		fmt.Fprintln(out, result.Inspect())
	}
}

// handleCommand processes a :command line; returns true to quit
func (s *session) handleCommand(input string, out io.Writer) bool {
	parts := strings.Fields(input)
	switch parts[0] {
	case ":quit", ":q", ":exit":
		return true

	case ":help", ":h":
		fmt.Fprint(out, `Commands:
  :load FILE     load a JSON document as the evaluation root
  :descend PATH  walk into a field (dot path), pushing the current object
                 as an ancestor so parent/parentN resolve
  :parents       show the current ancestor chain
  :reset         back to the loaded document root
  :quit          exit

Anything else is evaluated as a condition expression.
`)

	case ":load":
		if len(parts) != 2 {
			fmt.Fprintln(out, "usage: :load FILE")
			break
		}
		data, err := os.ReadFile(parts[1])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			break
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			fmt.Fprintf(out, "error: %s is not valid JSON: %v\n", parts[1], err)
			break
		}
		s.ctx = evaluator.NewContext(evaluator.FromJSON(doc))
		fmt.Fprintf(out, "loaded %s\n", parts[1])

	case ":descend":
		if len(parts) != 2 {
			fmt.Fprintln(out, "usage: :descend PATH")
			break
		}
		target := s.ctx.Data
		for _, segment := range strings.Split(parts[1], ".") {
			dict, ok := target.(*evaluator.Dict)
			if !ok {
				target = evaluator.NULL
				break
			}
			target = dict.Get(segment)
		}
		if target == evaluator.NULL {
			fmt.Fprintf(out, "error: no object at %s\n", parts[1])
			break
		}
		s.ctx = s.ctx.Descend(target)
		fmt.Fprintf(out, "now at %s (%d ancestor(s))\n", parts[1], len(s.ctx.Ancestors))

	case ":parents":
		if len(s.ctx.Ancestors) == 0 {
			fmt.Fprintln(out, "no ancestors: at the document root")
			break
		}
		for i, ancestor := range s.ctx.Ancestors {
			fmt.Fprintf(out, "parent%s: %s\n", levelSuffix(i+1), summarize(ancestor))
		}

	case ":reset":
		s.ctx = evaluator.NewContext(s.ctx.Root)
		fmt.Fprintln(out, "back at the document root")

	default:
		fmt.Fprintf(out, "unknown command %s (try :help)\n", parts[0])
	}
	return false
}

func levelSuffix(level int) string {
	if level == 1 {
		return ""
	}
	return fmt.Sprintf("%d", level)
}

// summarize renders an ancestor compactly: full Inspect output for small
// objects would flood the terminal.
func summarize(obj evaluator.Object) string {
	s := obj.Inspect()
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}

// needsMoreInput reports whether the expression has unclosed parens,
// brackets, or strings and should continue on the next line
func needsMoreInput(input string) bool {
	depth := 0
	inString := false
	escaped := false

	for _, ch := range input {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '(', '[':
			if !inString {
				depth++
			}
		case ')', ']':
			if !inString {
				depth--
			}
		}
	}
	return inString || depth > 0
}

// filterCompletions returns completion candidates for the current word
func filterCompletions(input string) []string {
	// Complete only the last word so completion works mid-expression
	start := strings.LastIndexAny(input, " (,[")
	prefix := input[start+1:]
	if prefix == "" {
		return nil
	}

	var completions []string
	for _, word := range completionWords {
		if strings.HasPrefix(strings.ToLower(word), strings.ToLower(prefix)) {
			completions = append(completions, input[:start+1]+word)
		}
	}
	return completions
}
