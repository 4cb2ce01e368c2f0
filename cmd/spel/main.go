// Command spel is the expression tool: one-shot evaluation of a condition
// against a JSON document, parse-only checking, or an interactive shell.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/avolkov/spector/pkg/dict"
	"github.com/avolkov/spector/pkg/spel/engine"
	"github.com/avolkov/spector/pkg/spel/evaluator"
	"github.com/avolkov/spector/pkg/spel/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var (
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	evalFlag     = flag.String("e", "", "Evaluate an expression string")
	evalLongFlag = flag.String("eval", "", "Evaluate an expression string")
	dataFlag     = flag.String("data", "", "JSON document the expression evaluates against")
	checkFlag    = flag.Bool("check", false, "Parse expressions without evaluating")

	dictsFlag  = flag.String("dicts", "", "YAML dictionary fixture")
	sqliteFlag = flag.String("sqlite", "", "SQLite dictionary snapshot")

	parentFlags stringList
)

func main() {
	flag.Var(&parentFlags, "parent", "JSON document bound as an ancestor (repeatable; nearest first)")
	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag || *versionLongFlag {
		fmt.Printf("spel version %s\n", Version)
		os.Exit(0)
	}

	eng, err := buildEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case *checkFlag:
		sources := flag.Args()
		if evalCode != "" {
			sources = append([]string{evalCode}, sources...)
		}
		if len(sources) == 0 {
			fmt.Fprintln(os.Stderr, "Error: -check requires an expression or files")
			os.Exit(2)
		}
		os.Exit(checkSources(eng, sources))
	case evalCode != "":
		os.Exit(evaluate(eng, evalCode))
	default:
		repl.Start(os.Stdin, os.Stdout, Version, eng)
	}
}

// buildEngine wires the dictionaries requested on the command line
func buildEngine() (*engine.Engine, error) {
	store := dict.NewStore()
	if *sqliteFlag != "" {
		snapshot, err := dict.LoadSQLite(*sqliteFlag)
		if err != nil {
			return nil, err
		}
		store.Merge(snapshot)
	}
	if *dictsFlag != "" {
		fixture, err := dict.LoadYAML(*dictsFlag)
		if err != nil {
			return nil, err
		}
		store.Merge(fixture)
	}
	return engine.New(
		engine.WithDictionaries(store),
		engine.WithLogger(engine.StderrLogger()),
	), nil
}

// evaluate runs one expression against the -data document with -parent
// ancestors bound
func evaluate(eng *engine.Engine, source string) int {
	ctx, err := buildContext()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	result, evalErr := eng.EvaluateInContext(source, ctx)
	if evalErr != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %s\n", evalErr.Code, evalErr.Message)
		return 1
	}
	fmt.Println(result.Inspect())
	return 0
}

// buildContext loads -data as the current object and stacks -parent
// documents as ancestors, nearest first. The outermost ancestor doubles as
// the root.
func buildContext() (*evaluator.Context, error) {
	data, err := loadJSONFlag(*dataFlag)
	if err != nil {
		return nil, err
	}

	if len(parentFlags) == 0 {
		return evaluator.NewContext(data), nil
	}

	// Stack outermost first, then descend back down to the data object
	parents := make([]evaluator.Object, len(parentFlags))
	for i, path := range parentFlags {
		parent, err := loadJSONFlag(path)
		if err != nil {
			return nil, err
		}
		parents[i] = parent
	}

	ctx := evaluator.NewContext(parents[len(parents)-1])
	for i := len(parents) - 2; i >= 0; i-- {
		ctx = ctx.Descend(parents[i])
	}
	return ctx.Descend(data), nil
}

func loadJSONFlag(path string) (evaluator.Object, error) {
	if path == "" {
		return evaluator.NULL, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", path, err)
	}
	return evaluator.FromJSON(doc), nil
}

// checkSources parses each source (an inline expression or a file of one
// expression per line) and reports errors without evaluating
func checkSources(eng *engine.Engine, sources []string) int {
	exitCode := 0
	for _, source := range sources {
		expressions := []string{source}
		label := "(inline)"

		if _, err := os.Stat(source); err == nil {
			raw, err := os.ReadFile(source)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return 2
			}
			label = source
			expressions = nil
			for _, line := range strings.Split(string(raw), "\n") {
				line = strings.TrimSpace(line)
				if line != "" && !strings.HasPrefix(line, "#") {
					expressions = append(expressions, line)
				}
			}
		}

		for _, expr := range expressions {
			if _, err := eng.Compile(expr); err != nil {
				fmt.Fprintf(os.Stderr, "%s: error [%s]: %s\n", label, err.Code, err.Message)
				exitCode = 1
			}
		}
	}
	if exitCode == 0 {
		fmt.Println("OK")
	}
	return exitCode
}

func printHelp() {
	fmt.Printf(`spel - condition expression tool version %s

Usage:
  spel                          Start the interactive shell
  spel -e EXPR [-data doc.json] Evaluate an expression
  spel -check EXPR|FILE...      Parse without evaluating

Flags:
  -e, -eval EXPR   Expression to evaluate
  -data FILE       JSON document bound as 'this'
  -parent FILE     JSON document bound as an ancestor (repeatable; nearest first)
  -dicts FILE      YAML dictionary fixture for isDictionaryValue
  -sqlite FILE     SQLite dictionary snapshot
  -check           Parse-only mode
  -V, -version     Show version
  -h, -help        Show this help

Examples:
  spel -e 'and(eq(this.productCd, 10410001), notNull(this.loanAmount))' -data request.json
  spel -e 'eq(parent.limit, 1000)' -data item.json -parent request.json
  spel -check conditions.txt
`, Version)
}
