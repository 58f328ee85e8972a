// Package main provides the CLI entry point for the wrangler runtime.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cannectors/wrangler/internal/cli"
	"github.com/cannectors/wrangler/internal/config"
	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/internal/registry"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
	ExitErrorRows       = 4
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// options holds flag values for one invocation.
type options struct {
	verbose   bool
	quiet     bool
	logFormat string
	logLevel  string
	logFile   string

	input           string
	output          string
	errors          string
	failOnErrorRows bool
}

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	defer logger.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitRuntimeError
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	printer := cli.NewPrinter(stdout, stderr, false, false)

	root := &cobra.Command{
		Use:   "wrangler",
		Short: "Wrangler - directive-based row transformation runtime",
		Long: `Wrangler runs recipes of data preparation directives over rows.

A pipeline file (YAML, JSON or TOML) names the recipe, the rows to read and
where results and error records go. Each row is folded through the recipe's
directives in order; rows a directive rejects become error records.

Examples:
  # Validate a pipeline file and its recipe
  wrangler validate orders.yaml

  # Run a pipeline, reading rows from stdin and writing results to stdout
  cat rows.jsonl | wrangler run orders.yaml --input - --output -

  # List the available directives
  wrangler directives`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			printer.Verbose, printer.Quiet = opts.verbose, opts.quiet
			return configureLogging(opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "human", "Log format: human or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides -v and -q)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")

	validateCmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a pipeline file and its recipe",
		Long: `Validate a pipeline file against the schema and compile its recipe.

The format is detected from the extension (.yaml, .yml, .json, .toml) or
from the content.

Exit codes:
  0 - Pipeline is valid
  1 - Validation errors (schema violations or recipe errors)
  2 - Parse errors (invalid YAML/JSON/TOML syntax)`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(printer, args[0])
		},
	}

	runCmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Run a pipeline",
		Long: `Run the pipeline defined in the configuration file.

The pipeline is validated first; an invalid pipeline is not executed.
--input, --output and --errors override the paths in the file; "-" selects
stdin or stdout.

Exit codes:
  0 - Pipeline executed successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors (a directive aborted the run, or rows could not be read or written)
  4 - Completed with error rows (only with --fail-on-error-rows)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), printer, opts, args[0])
		},
	}
	runCmd.Flags().StringVar(&opts.input, "input", "", "Read rows from this file (\"-\" for stdin)")
	runCmd.Flags().StringVar(&opts.output, "output", "", "Write result rows to this file (\"-\" for stdout)")
	runCmd.Flags().StringVar(&opts.errors, "errors", "", "Write error records to this file")
	runCmd.Flags().BoolVar(&opts.failOnErrorRows, "fail-on-error-rows", false, "Exit with code 4 when any row was sent to error")

	directivesCmd := &cobra.Command{
		Use:   "directives",
		Short: "List the available directives and their usage",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDirectives(printer)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			printer.PrintVersion(version, commit, buildDate)
		},
	}

	root.AddCommand(validateCmd, runCmd, directivesCmd, versionCmd)
	return root
}

func configureLogging(opts *options, stderr io.Writer) error {
	format, err := logger.ParseFormat(opts.logFormat)
	if err != nil {
		return exitWith(ExitValidationError, err)
	}

	level := slog.LevelWarn
	switch {
	case opts.logLevel != "":
		if level, err = logger.ParseLevel(opts.logLevel); err != nil {
			return exitWith(ExitValidationError, err)
		}
	case opts.verbose:
		level = slog.LevelDebug
	case opts.quiet:
		level = slog.LevelError
	}

	logger.SetOutput(stderr, level, format)
	if opts.logFile != "" {
		if err := logger.SetLogFile(opts.logFile, level, format); err != nil {
			return exitWith(ExitRuntimeError, err)
		}
	}
	return nil
}

func runDirectives(printer *cli.Printer) error {
	var usages []*grammar.UsageDefinition
	for _, name := range registry.List() {
		if usage, ok := registry.Usage(name); ok {
			usages = append(usages, usage)
		}
	}
	printer.PrintDirectives(usages)
	return nil
}

// loadPipeline loads a pipeline file and reports its errors.
func loadPipeline(printer *cli.Printer, path string) (*wrangler.Pipeline, *config.Result, error) {
	pl, result, err := config.Load(path)
	switch {
	case err == nil:
		return pl, result, nil
	case errors.Is(err, config.ErrParse):
		printer.PrintParseErrors(result.ParseErrors)
		return nil, nil, exitWith(ExitParseError, err)
	case len(result.ValidationErrors) > 0:
		printer.PrintValidationErrors(result.ValidationErrors)
		return nil, nil, exitWith(ExitValidationError, err)
	default:
		printer.PrintValidationErrors([]config.ValidationError{{Path: "/", Message: err.Error()}})
		return nil, nil, exitWith(ExitValidationError, err)
	}
}
