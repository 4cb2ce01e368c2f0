package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchCommand runs an initial check, then re-runs it whenever the schema,
// a scenario, or a dictionary file changes
func watchCommand(args []string) int {
	opts, err := parseOptions("watch", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	runCheck(opts)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	defer watcher.Close()

	for _, path := range watchPaths(opts) {
		if err := watcher.Add(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot watch %s: %v\n", path, err)
			return 2
		}
	}

	fmt.Fprintln(os.Stderr, "watching for changes (Ctrl+C to stop)")

	// Editors fire several events per save; coalesce them with a short timer
	var pending *time.Timer
	rerun := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})
			// A rename replaces the inode; re-add the path so subsequent
			// saves are still seen
			if event.Op&fsnotify.Rename != 0 {
				watcher.Add(event.Name)
			}

		case <-rerun:
			fmt.Fprintln(os.Stderr, "")
			runCheck(opts)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintln(os.Stderr, "Error:", watchErr)
		}
	}
}

func watchPaths(opts *options) []string {
	paths := []string{opts.schemaPath}
	paths = append(paths, opts.scenarios...)
	if opts.dictsPath != "" {
		paths = append(paths, opts.dictsPath)
	}
	if opts.sqlitePath != "" {
		paths = append(paths, opts.sqlitePath)
	}
	return paths
}
