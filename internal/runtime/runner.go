package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/internal/recipe"
	"github.com/cannectors/wrangler/pkg/row"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

// Defaults applied by NewRunner.
const (
	DefaultBatchSize = 100
	DefaultWorkers   = 1
)

// Config configures a Runner.
type Config struct {
	// PipelineName is used in logs and in the run result
	PipelineName string

	// Recipe is the recipe text
	Recipe string

	// Options is passed to every directive constructor
	Options directive.Options

	// Context is shared by every worker and must be safe for concurrent
	// use when Workers > 1
	Context directive.ExecutorContext

	// BatchSize is the number of rows per batch
	BatchSize int

	// Workers is the number of batches processed concurrently. Each worker
	// compiles its own copy of the recipe.
	Workers int
}

// Outcome is what a run produced.
type Outcome struct {
	Rows   []*row.Row
	Errors []wrangler.ErrorRecord
	Result *wrangler.ExecutionResult
}

// Runner executes a recipe over a set of rows.
type Runner struct {
	cfg Config
}

// NewRunner validates the recipe once and applies defaults.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if err := recipe.Validate(cfg.Recipe, cfg.Options); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg}, nil
}

type batchJob struct {
	index  int
	offset int
	rows   []*row.Row
}

// Run splits rows into batches and folds them through the recipe.
//
// Batches are distributed over the configured workers; results are merged
// back in input order. A fatal error cancels the remaining batches and is
// returned together with an Outcome whose Result has status "error".
func (r *Runner) Run(ctx context.Context, rows []*row.Row) (*Outcome, error) {
	startedAt := time.Now()
	result := &wrangler.ExecutionResult{
		RunID:        uuid.NewString(),
		PipelineName: r.cfg.PipelineName,
		Status:       wrangler.StatusError,
		StartedAt:    startedAt,
		RowsIn:       len(rows),
	}
	execCtx := logger.ExecutionContext{
		RunID:        result.RunID,
		PipelineName: r.cfg.PipelineName,
		Batch:        -1,
	}
	logger.LogExecutionStart(execCtx)

	jobs := r.split(rows)
	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan batchJob)

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(r.cfg.Workers, max(len(jobs), 1))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			return r.work(gctx, result.RunID, queue, results)
		})
	}

	err := g.Wait()
	outcome := &Outcome{Result: result}
	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(err)
		logger.LogError("pipeline run failed", logger.ErrorContext{
			RunID:        result.RunID,
			PipelineName: r.cfg.PipelineName,
			Directive:    result.Error.Directive,
			Line:         result.Error.Line,
			ErrorCode:    result.Error.Code,
			ErrorMessage: result.Error.Message,
			Err:          err,
			RowIndex:     -1,
			RowCount:     len(rows),
		})
		logger.LogExecutionEnd(execCtx, result.Status, 0, result.Duration())
		return outcome, err
	}

	for _, br := range results {
		outcome.Rows = append(outcome.Rows, br.Rows...)
		outcome.Errors = append(outcome.Errors, br.Errors...)
		result.RowsFiltered += br.Filtered
	}
	result.RowsOut = len(outcome.Rows)
	result.RowsErrored = len(outcome.Errors)
	result.CompletedAt = time.Now()
	result.Status = wrangler.StatusSuccess
	if result.RowsErrored > 0 {
		result.Status = wrangler.StatusPartial
	}

	logger.LogMetrics(execCtx, MetricsOf(result))
	logger.LogExecutionEnd(execCtx, result.Status, len(rows), result.Duration())
	return outcome, nil
}

// work compiles a private recipe and drains the queue.
func (r *Runner) work(ctx context.Context, runID string, queue <-chan batchJob, results []*Result) error {
	rec, err := recipe.Compile(r.cfg.Recipe, r.cfg.Options)
	if err != nil {
		return err
	}
	defer rec.Destroy()

	for job := range queue {
		exec := NewExecutor(rec, r.cfg.Context).WithLogContext(runID, r.cfg.PipelineName, job.index)
		res, err := exec.Execute(ctx, job.rows, job.offset)
		if err != nil {
			return err
		}
		results[job.index] = res

		logger.WithExecution(logger.ExecutionContext{
			RunID:        runID,
			PipelineName: r.cfg.PipelineName,
			Batch:        job.index,
		}).Debug("batch completed",
			slog.Int("rows_out", len(res.Rows)),
			slog.Int("rows_errored", len(res.Errors)),
		)
	}
	return ctx.Err()
}

func (r *Runner) split(rows []*row.Row) []batchJob {
	size := r.cfg.BatchSize
	jobs := make([]batchJob, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		jobs = append(jobs, batchJob{index: len(jobs), offset: start, rows: rows[start:end]})
	}
	return jobs
}

// MetricsOf summarizes a run result for logging.
func MetricsOf(res *wrangler.ExecutionResult) logger.ExecutionMetrics {
	m := logger.ExecutionMetrics{
		TotalDuration: res.Duration(),
		RowsIn:        res.RowsIn,
		RowsOut:       res.RowsOut,
		RowsErrored:   res.RowsErrored,
		RowsFiltered:  res.RowsFiltered,
	}
	if secs := m.TotalDuration.Seconds(); secs > 0 {
		m.RowsPerSecond = float64(res.RowsIn) / secs
	}
	return m
}

// Execute compiles recipeText and folds rows through it on the calling
// goroutine. It returns the rows that completed the recipe and the error
// records of the rows that did not.
func Execute(ctx context.Context, recipeText string, rows []*row.Row, ectx directive.ExecutorContext, opts directive.Options) ([]*row.Row, []wrangler.ErrorRecord, error) {
	rec, err := recipe.Compile(recipeText, opts)
	if err != nil {
		return nil, nil, err
	}
	defer rec.Destroy()

	res, err := NewExecutor(rec, ectx).Execute(ctx, rows, 0)
	if err != nil {
		return nil, nil, err
	}
	return res.Rows, res.Errors, nil
}
