// Command spector checks JSON test scenarios against a banking-API schema:
// required fields, conditional requirements, dictionary membership, and
// value constraints.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/goodsign/monday"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "check":
			os.Exit(checkCommand(os.Args[2:]))
		case "watch":
			os.Exit(watchCommand(os.Args[2:]))
		case "version":
			fmt.Printf("spector version %s\n", Version)
			return
		case "help", "-h", "--help", "-help":
			printHelp()
			return
		}
	}

	printHelp()
	os.Exit(2)
}

// runStamp formats the run date for the configured locale. The audience is
// bank testers reading reports in their own language.
func runStamp(locale string, now time.Time) string {
	return monday.Format(now, "Monday, 2 January 2006 15:04", mondayLocale(locale))
}

func mondayLocale(locale string) monday.Locale {
	switch locale {
	case "en_US":
		return monday.LocaleEnUS
	case "en_GB":
		return monday.LocaleEnGB
	default:
		return monday.LocaleRuRU
	}
}

// report is the -json output shape
type report struct {
	Schema    string           `json:"schema"`
	RunDate   string           `json:"runDate"`
	Scenarios []scenarioReport `json:"scenarios"`
}

type scenarioReport struct {
	Scenario   string      `json:"scenario"`
	Violations []violation `json:"violations"`
}

func printReport(r report) error {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printHelp() {
	fmt.Printf(`spector - schema scenario checker version %s

Usage:
  spector check -schema FILE -scenario FILE [flags]
  spector watch -schema FILE -scenario FILE [flags]
  spector version

Flags (check and watch):
  -config FILE      Config file (default: spector.yaml if present)
  -schema FILE      Schema to check against
  -scenario FILE    Scenario document (repeatable)
  -dicts FILE       YAML dictionary fixture
  -sqlite FILE      SQLite dictionary snapshot
  -fail-closed      Condition evaluation errors become violations
  -json             Machine-readable report
  -quiet            Violations only
  -verbose          Per-condition diagnostics
  -locale NAME      Run stamp locale (default ru_RU)

Exit codes: 0 no violations, 1 violations found, 2 usage or load error.
`, Version)
}
