package cli

import (
	"fmt"
	"strings"

	"github.com/cannectors/wrangler/internal/grammar"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

// maxListedErrors bounds the error records listed in compact mode.
const maxListedErrors = 5

// PrintExecutionResult displays the outcome of a run on Err.
func (p *Printer) PrintExecutionResult(result *wrangler.ExecutionResult, errs []wrangler.ErrorRecord, err error) {
	if result == nil {
		fmt.Fprintln(p.Err, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(p.Err, "✗ Pipeline execution failed")
		if result.Error != nil {
			if result.Error.Directive != "" {
				fmt.Fprintf(p.Err, "  Directive: %s (line %d)\n", result.Error.Directive, result.Error.Line)
			}
			fmt.Fprintf(p.Err, "  Code: %s\n", result.Error.Code)
			fmt.Fprintf(p.Err, "  Error: %s\n", result.Error.Message)
			if cause, ok := result.Error.Details["cause"]; ok && p.Verbose {
				fmt.Fprintf(p.Err, "  Cause: %v\n", cause)
			}
		}
		return
	}

	if p.Quiet {
		return
	}

	if result.Status == wrangler.StatusSuccess {
		fmt.Fprintln(p.Err, "✓ Pipeline executed successfully")
	} else {
		fmt.Fprintln(p.Err, "⚠ Pipeline completed with error rows")
	}
	fmt.Fprintf(p.Err, "  Run: %s\n", result.RunID)
	fmt.Fprintf(p.Err, "  Status: %s\n", result.Status)
	fmt.Fprintf(p.Err, "  Rows in: %d\n", result.RowsIn)
	fmt.Fprintf(p.Err, "  Rows out: %d\n", result.RowsOut)
	if result.RowsFiltered > 0 {
		fmt.Fprintf(p.Err, "  Rows filtered: %d\n", result.RowsFiltered)
	}
	if result.RowsErrored > 0 {
		fmt.Fprintf(p.Err, "  Rows errored: %d\n", result.RowsErrored)
		p.printErrorRecords(errs)
	}
	if p.Verbose {
		fmt.Fprintf(p.Err, "  Duration: %s\n", result.Duration())
	}
}

func (p *Printer) printErrorRecords(errs []wrangler.ErrorRecord) {
	limit := len(errs)
	if !p.Verbose && limit > maxListedErrors {
		limit = maxListedErrors
	}
	for _, e := range errs[:limit] {
		fmt.Fprintf(p.Err, "    row %d: %s (line %d): %s\n", e.Index, e.Directive, e.Line, e.Message)
	}
	if limit < len(errs) {
		fmt.Fprintf(p.Err, "    ... (%d more, use --verbose to list all)\n", len(errs)-limit)
	}
}

// PrintPipelineSummary prints the pipeline identity and recipe size to Out.
func (p *Printer) PrintPipelineSummary(pl *wrangler.Pipeline, statements int) {
	if pl == nil {
		return
	}
	fmt.Fprintf(p.Out, "  Pipeline: %s\n", pl.Name)
	if pl.Description != "" {
		fmt.Fprintf(p.Out, "  Description: %s\n", pl.Description)
	}
	fmt.Fprintf(p.Out, "  Directives: %d\n", statements)
	if len(pl.Datasets) > 0 {
		fmt.Fprintf(p.Out, "  Datasets: %d\n", len(pl.Datasets))
	}
}

// PrintDirectives lists directives with their usage to Out.
func (p *Printer) PrintDirectives(usages []*grammar.UsageDefinition) {
	for _, u := range usages {
		fmt.Fprintln(p.Out, u.String())
	}
}

// PrintVersion prints build information to Out.
func (p *Printer) PrintVersion(version, commit, buildDate string) {
	fmt.Fprintf(p.Out, "Version: %s\n", version)
	fmt.Fprintf(p.Out, "Commit: %s\n", commit)
	fmt.Fprintf(p.Out, "Build Date: %s\n", buildDate)
}

// PrintMetricsSummary prints the one-line throughput summary to Err.
func (p *Printer) PrintMetricsSummary(m logger.ExecutionMetrics) {
	if p.Quiet {
		return
	}
	fmt.Fprintln(p.Err, strings.TrimSpace(logger.FormatMetricsHuman(m)))
}
