package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avolkov/spector/config"
	"github.com/avolkov/spector/pkg/dict"
	"github.com/avolkov/spector/pkg/schema"
	"github.com/avolkov/spector/pkg/spel/engine"
)

type violation = schema.Violation

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// options holds the effective settings of a check or watch run after config
// and flags are merged
type options struct {
	schemaPath string
	scenarios  []string
	dictsPath  string
	sqlitePath string
	failClosed bool
	jsonOut    bool
	quiet      bool
	verbose    bool
	locale     string
}

// parseOptions parses the shared check/watch flag set and merges it over the
// config file: flags win.
func parseOptions(name string, args []string) (*options, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	configPath := fs.String("config", "", "Config file")
	schemaPath := fs.String("schema", "", "Schema to check against")
	dictsPath := fs.String("dicts", "", "YAML dictionary fixture")
	sqlitePath := fs.String("sqlite", "", "SQLite dictionary snapshot")
	failClosed := fs.Bool("fail-closed", false, "Condition evaluation errors become violations")
	jsonOut := fs.Bool("json", false, "Machine-readable report")
	quiet := fs.Bool("quiet", false, "Violations only")
	verbose := fs.Bool("verbose", false, "Per-condition diagnostics")
	locale := fs.String("locale", "", "Run stamp locale")

	var scenarios stringList
	fs.Var(&scenarios, "scenario", "Scenario document (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		return nil, err
	}

	opts := &options{
		schemaPath: cfg.Schema,
		scenarios:  cfg.Scenarios,
		dictsPath:  cfg.Dictionaries.YAML,
		sqlitePath: cfg.Dictionaries.SQLite,
		failClosed: cfg.FailClosed || *failClosed,
		jsonOut:    *jsonOut,
		quiet:      cfg.Logging.Quiet || *quiet,
		verbose:    cfg.Logging.Verbose || *verbose,
		locale:     cfg.Locale,
	}
	if *schemaPath != "" {
		opts.schemaPath = *schemaPath
	}
	if len(scenarios) > 0 {
		opts.scenarios = scenarios
	}
	if *dictsPath != "" {
		opts.dictsPath = *dictsPath
	}
	if *sqlitePath != "" {
		opts.sqlitePath = *sqlitePath
	}
	if *locale != "" {
		opts.locale = *locale
	}

	if opts.schemaPath == "" {
		return nil, fmt.Errorf("a schema is required (-schema or config)")
	}
	if len(opts.scenarios) == 0 {
		return nil, fmt.Errorf("at least one scenario is required (-scenario or config)")
	}
	return opts, nil
}

func checkCommand(args []string) int {
	opts, err := parseOptions("check", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	return runCheck(opts)
}

// runCheck loads everything and checks each scenario; returns the process
// exit code
func runCheck(opts *options) int {
	store, err := loadDictionaries(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	logger := engine.NullLogger()
	if opts.verbose {
		logger = engine.StderrLogger()
	}
	eng := engine.New(
		engine.WithDictionaries(store),
		engine.WithLogger(logger),
	)

	s, err := schema.Load(opts.schemaPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	checkerOpts := []schema.CheckerOption{schema.WithCheckerLogger(logger)}
	if opts.failClosed {
		checkerOpts = append(checkerOpts, schema.FailClosed())
	}
	checker := schema.NewChecker(s, eng, checkerOpts...)

	// A schema with unparseable conditions fails before any scenario runs
	if compileErrs := checker.CompileConditions(); len(compileErrs) > 0 {
		for _, cerr := range compileErrs {
			fmt.Fprintf(os.Stderr, "Error: schema condition at %s: %s\n", cerr.Source, cerr.Message)
		}
		return 2
	}

	rep := report{
		Schema:    opts.schemaPath,
		RunDate:   runStamp(opts.locale, time.Now()),
		Scenarios: make([]scenarioReport, 0, len(opts.scenarios)),
	}

	total := 0
	for _, scenarioPath := range opts.scenarios {
		violations, err := checkScenario(checker, scenarioPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 2
		}
		total += len(violations)
		rep.Scenarios = append(rep.Scenarios, scenarioReport{
			Scenario:   scenarioPath,
			Violations: violations,
		})
	}

	if opts.jsonOut {
		if err := printReport(rep); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 2
		}
	} else {
		printText(rep, opts)
	}

	if total > 0 {
		return 1
	}
	return 0
}

func checkScenario(checker *schema.Checker, path string) ([]violation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", path, err)
	}
	violations := checker.Check(document)
	if violations == nil {
		violations = []violation{}
	}
	return violations, nil
}

// loadDictionaries merges the YAML fixture over the SQLite snapshot
func loadDictionaries(opts *options) (*dict.Store, error) {
	store := dict.NewStore()
	if opts.sqlitePath != "" {
		snapshot, err := dict.LoadSQLite(opts.sqlitePath)
		if err != nil {
			return nil, err
		}
		store.Merge(snapshot)
	}
	if opts.dictsPath != "" {
		fixture, err := dict.LoadYAML(opts.dictsPath)
		if err != nil {
			return nil, err
		}
		store.Merge(fixture)
	}
	return store, nil
}

func printText(rep report, opts *options) {
	if !opts.quiet {
		fmt.Printf("spector check: %s\n", rep.RunDate)
		fmt.Printf("schema: %s\n\n", rep.Schema)
	}

	for _, sc := range rep.Scenarios {
		if len(sc.Violations) == 0 {
			if !opts.quiet {
				fmt.Printf("%s: ok\n", sc.Scenario)
			}
			continue
		}
		fmt.Printf("%s: %d violation(s)\n", sc.Scenario, len(sc.Violations))
		for _, v := range sc.Violations {
			fmt.Printf("  %s\n", v)
		}
	}
}
