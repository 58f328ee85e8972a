package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cannectors/wrangler/internal/cli"
	"github.com/cannectors/wrangler/internal/config"
	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/execctx"
	"github.com/cannectors/wrangler/internal/expression"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/internal/lookup"
	"github.com/cannectors/wrangler/internal/pathutil"
	"github.com/cannectors/wrangler/internal/recipe"
	"github.com/cannectors/wrangler/internal/rowio"
	"github.com/cannectors/wrangler/internal/runtime"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

func runValidate(printer *cli.Printer, configPath string) error {
	printer.Progressf("Validating pipeline: %s", configPath)

	pl, result, err := loadPipeline(printer, configPath)
	if err != nil {
		return err
	}

	opts, err := directiveOptions(pl)
	if err != nil {
		printer.PrintValidationErrors([]config.ValidationError{{Path: "/expressionLanguage", Message: err.Error()}})
		return exitWith(ExitValidationError, err)
	}
	text := recipe.Join(pl.Recipe)
	if err := recipe.Validate(text, opts); err != nil {
		printer.PrintRecipeError(err)
		return exitWith(ExitValidationError, err)
	}

	ectx, err := newExecutorContext(pl, nil)
	if err != nil {
		printer.PrintValidationErrors([]config.ValidationError{{Path: "/context", Message: err.Error()}})
		return exitWith(ExitValidationError, err)
	}
	_ = ectx.Close()

	if !printer.Quiet {
		fmt.Fprintf(printer.Out, "✓ Pipeline is valid (format: %s)\n", result.Format)
		if printer.Verbose {
			printer.PrintPipelineSummary(pl, len(recipe.Split(text)))
		}
	}
	return nil
}

func runPipeline(ctx context.Context, printer *cli.Printer, flags *options, configPath string) error {
	printer.Progressf("Loading pipeline: %s", configPath)

	pl, _, err := loadPipeline(printer, configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(pl, flags); err != nil {
		printer.PrintValidationErrors([]config.ValidationError{{Message: err.Error()}})
		return exitWith(ExitValidationError, err)
	}

	opts, err := directiveOptions(pl)
	if err != nil {
		printer.PrintValidationErrors([]config.ValidationError{{Path: "/expressionLanguage", Message: err.Error()}})
		return exitWith(ExitValidationError, err)
	}

	metrics, err := execctx.NewMetrics(pl.Name)
	if err != nil {
		return exitWith(ExitRuntimeError, err)
	}
	ectx, err := newExecutorContext(pl, metrics)
	if err != nil {
		printer.PrintValidationErrors([]config.ValidationError{{Path: "/context", Message: err.Error()}})
		return exitWith(ExitValidationError, err)
	}
	defer func() {
		if err := ectx.Close(); err != nil {
			logger.Warn("closing datasets failed", slog.String("error", err.Error()))
		}
	}()

	runner, err := runtime.NewRunner(runtime.Config{
		PipelineName: pl.Name,
		Recipe:       recipe.Join(pl.Recipe),
		Options:      opts,
		Context:      ectx,
		BatchSize:    pl.Execution.BatchSize,
		Workers:      pl.Execution.Workers,
	})
	if err != nil {
		printer.PrintRecipeError(err)
		return exitWith(ExitValidationError, err)
	}

	rows, err := rowio.ReadFile(pl.Input.Path, pl.Input.Format)
	if err != nil {
		fmt.Fprintf(printer.Err, "✗ Failed to read rows: %v\n", err)
		return exitWith(ExitRuntimeError, err)
	}
	printer.Progressf("Executing pipeline %s over %d rows...", pl.Name, len(rows))

	outcome, runErr := runner.Run(ctx, rows)
	metrics.RecordRun(outcome.Result)
	exportMetrics(pl.Metrics, metrics)

	printer.PrintExecutionResult(outcome.Result, outcome.Errors, runErr)
	if runErr != nil {
		return exitWith(ExitRuntimeError, runErr)
	}

	if err := writeResults(printer, pl.Output, outcome); err != nil {
		fmt.Fprintf(printer.Err, "✗ Failed to write results: %v\n", err)
		return exitWith(ExitRuntimeError, err)
	}
	if printer.Verbose {
		printer.PrintMetricsSummary(runtime.MetricsOf(outcome.Result))
	}

	if flags.failOnErrorRows && outcome.Result.RowsErrored > 0 {
		return exitWith(ExitErrorRows, fmt.Errorf("%d row(s) sent to error", outcome.Result.RowsErrored))
	}
	return nil
}

// applyOverrides replaces the pipeline's row paths with the ones given on the
// command line. Command line paths are relative to the working directory.
func applyOverrides(pl *wrangler.Pipeline, flags *options) error {
	if pl.Input == nil {
		pl.Input = &wrangler.InputConfig{Path: pathutil.Stdio}
	}
	if pl.Output == nil {
		pl.Output = &wrangler.OutputConfig{Path: pathutil.Stdio}
	}

	override := func(flag string, value string, target *string) error {
		if value == "" {
			return nil
		}
		resolved, err := pathutil.Resolve("", value)
		if err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		*target = resolved
		return nil
	}
	if err := override("input", flags.input, &pl.Input.Path); err != nil {
		return err
	}
	if err := override("output", flags.output, &pl.Output.Path); err != nil {
		return err
	}
	return override("errors", flags.errors, &pl.Output.Errors)
}

func directiveOptions(pl *wrangler.Pipeline) (directive.Options, error) {
	evaluator, err := expression.New(pl.ExpressionLanguage)
	if err != nil {
		return directive.Options{}, err
	}
	return directive.Options{Evaluator: evaluator}, nil
}

func newExecutorContext(pl *wrangler.Pipeline, metrics *execctx.Metrics) (*execctx.Context, error) {
	datasets := make(map[string]lookup.Config, len(pl.Datasets))
	for name, ds := range pl.Datasets {
		datasets[name] = lookup.Config{Name: name, Path: ds.Path, Table: ds.Table, Key: ds.Key}
	}
	return execctx.New(execctx.Config{
		Name:        pl.Context.Name,
		Environment: directive.Environment(pl.Context.Environment),
		Properties:  pl.Context.Properties,
		Services:    pl.Context.Services,
		Datasets:    datasets,
	}, metrics)
}

func writeResults(printer *cli.Printer, out *wrangler.OutputConfig, outcome *runtime.Outcome) error {
	format := out.Format
	if out.Path == "" || out.Path == pathutil.Stdio {
		if format == "" {
			format = rowio.FormatJSONL
		}
		if err := rowio.Write(printer.Out, format, outcome.Rows); err != nil {
			return err
		}
	} else if err := rowio.WriteFile(out.Path, format, outcome.Rows); err != nil {
		return err
	}

	if out.Errors == "" {
		if len(outcome.Errors) > 0 {
			logger.Warn("error records discarded, no errors output configured",
				slog.Int("rows_errored", len(outcome.Errors)))
		}
		return nil
	}
	if out.Errors == pathutil.Stdio {
		return rowio.WriteErrors(printer.Err, rowio.FormatJSONL, outcome.Errors)
	}
	return rowio.WriteErrorsFile(out.Errors, "", outcome.Errors)
}

// exportMetrics writes and pushes run metrics. Export failures are logged and
// do not change the exit code.
func exportMetrics(cfg *wrangler.MetricsConfig, metrics *execctx.Metrics) {
	if cfg == nil {
		return
	}
	if cfg.File != "" {
		if err := metrics.WriteFile(cfg.File); err != nil {
			logger.Warn("writing metrics file failed", slog.String("path", cfg.File), slog.String("error", err.Error()))
		}
	}
	if cfg.Pushgateway != "" {
		if err := metrics.Push(cfg.Pushgateway, cfg.Job); err != nil {
			logger.Warn("pushing metrics failed", slog.String("gateway", cfg.Pushgateway), slog.String("error", err.Error()))
		}
	}
}
