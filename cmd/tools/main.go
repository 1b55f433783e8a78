package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// stdout receives command results; logs go to stderr.
var stdout io.Writer = os.Stdout

var commands = map[string]func([]string) error{
	"import-page": runImportPage,
	"import-site": runImportSite,
	"push-theme":  runPushTheme,
	"export-site": runExportSite,
	"catalog":     runCatalog,
	"validate":    runValidate,
	"init-db":     runInitDB,
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	zap.ReplaceGlobals(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	run, ok := commands[os.Args[1]]
	if !ok {
		zap.S().Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err := run(os.Args[2:]); err != nil {
		zap.S().Errorf("%s: %v", os.Args[1], err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
	_ = zap.L().Sync()
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: studiokit-tools <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import-page   Import one page file into a site")
	fmt.Fprintln(os.Stderr, "  import-site   Import every page of a site directory")
	fmt.Fprintln(os.Stderr, "  push-theme    Create or update the blocks and partials of a site from a theme")
	fmt.Fprintln(os.Stderr, "  export-site   Write a site back out as theme and page files")
	fmt.Fprintln(os.Stderr, "  catalog       Generate catalog.json for a theme")
	fmt.Fprintln(os.Stderr, "  validate      Check the block files of a theme")
	fmt.Fprintln(os.Stderr, "  init-db       Create the PostgreSQL tables")
}

// printResult writes v as indented JSON to stdout.
func printResult(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
