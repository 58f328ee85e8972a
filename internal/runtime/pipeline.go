// Package runtime provides the recipe execution engine.
// It folds rows through compiled directives and separates the rows that
// complete the recipe from the rows a directive rejected.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/internal/recipe"
	"github.com/cannectors/wrangler/pkg/row"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

// Error codes for run failures
const (
	ErrCodeRecipeInvalid   = "RECIPE_INVALID"
	ErrCodeDirectiveFailed = "DIRECTIVE_FAILED"
	ErrCodeCancelled       = "CANCELLED"
)

// cancelCheckInterval is how many rows are folded between context checks.
const cancelCheckInterval = 100

// Common errors
var (
	// ErrNilRecipe is returned when an executor has no recipe
	ErrNilRecipe = errors.New("recipe is nil")
)

// Result holds the outcome of one batch.
type Result struct {
	// Rows completed every directive, in input order
	Rows []*row.Row

	// Errors holds the rows a directive rejected, in input order
	Errors []wrangler.ErrorRecord

	// Filtered counts input rows that a directive removed without error
	Filtered int
}

// stepStats accumulates per-directive timing over a batch.
type stepStats struct {
	rows     int
	duration time.Duration
}

// Executor folds batches through one compiled recipe.
// It is not safe for concurrent use: the directives it holds are not
// reentrant. Use one Executor per goroutine.
type Executor struct {
	recipe  *recipe.Recipe
	context directive.ExecutorContext
	log     logger.ExecutionContext
}

// NewExecutor creates an executor over a compiled recipe. ectx is handed to
// every directive call and may be nil for recipes that do not need it.
func NewExecutor(r *recipe.Recipe, ectx directive.ExecutorContext) *Executor {
	return &Executor{
		recipe:  r,
		context: ectx,
		log:     logger.ExecutionContext{Stage: "recipe", Batch: -1},
	}
}

// WithLogContext sets the run identity used in log entries.
func (e *Executor) WithLogContext(runID, pipelineName string, batch int) *Executor {
	e.log.RunID = runID
	e.log.PipelineName = pipelineName
	e.log.Batch = batch
	return e
}

// Execute folds every row through the recipe in order.
//
// A row that a directive rejects with a row marker is recorded in
// Result.Errors and the next row is processed. Any other error aborts the
// batch and is returned with the directive name and recipe line attached.
// offset is added to row positions so error records index the whole input.
func (e *Executor) Execute(ctx context.Context, rows []*row.Row, offset int) (*Result, error) {
	if e.recipe == nil {
		return nil, ErrNilRecipe
	}

	steps := e.recipe.Steps
	stats := make([]stepStats, len(steps))
	res := &Result{Rows: make([]*row.Row, 0, len(rows))}
	e.logStepsStart()

	for i, in := range rows {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("batch cancelled after %d rows: %w", i, err)
			}
		}

		out, step, err := e.fold(in, stats)
		if err != nil {
			st := steps[step]
			if marker, ok := errhandling.AsErrorRow(err); ok {
				res.Errors = append(res.Errors, errorRecord(in, offset+i, st, marker))
				continue
			}

			err = errhandling.WithDirective(err, st.Name, st.Line)
			e.logStepFailure(st, stats[step], err)
			return nil, err
		}

		if len(out) == 0 {
			res.Filtered++
			continue
		}
		res.Rows = append(res.Rows, out...)
	}

	e.logSteps(stats)
	return res, nil
}

// fold runs one row through every step. On error it returns the index of the
// failing step.
func (e *Executor) fold(in *row.Row, stats []stepStats) ([]*row.Row, int, error) {
	current := []*row.Row{in}
	for i, st := range e.recipe.Steps {
		if len(current) == 0 {
			return current, i, nil
		}

		start := time.Now()
		next, err := st.Directive.Execute(current, e.context)
		stats[i].rows += len(current)
		stats[i].duration += time.Since(start)
		if err != nil {
			return nil, i, err
		}
		current = next
	}
	return current, len(e.recipe.Steps), nil
}

func errorRecord(r *row.Row, index int, st recipe.Step, marker *errhandling.ErrorRow) wrangler.ErrorRecord {
	return wrangler.ErrorRecord{
		Row:       r,
		Index:     index,
		Code:      marker.Code,
		Reason:    errhandling.ReasonText(marker.Code),
		Message:   marker.Message,
		Directive: st.Name,
		Line:      st.Line,
	}
}

func (e *Executor) stageContext(st recipe.Step) logger.ExecutionContext {
	c := e.log
	c.Directive = st.Name
	c.Line = st.Line
	return c
}

func (e *Executor) logStepsStart() {
	if !logger.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, st := range e.recipe.Steps {
		logger.LogStageStart(e.stageContext(st))
	}
}

func (e *Executor) logSteps(stats []stepStats) {
	if !logger.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for i, st := range e.recipe.Steps {
		logger.LogStageEnd(e.stageContext(st), stats[i].rows, stats[i].duration, nil)
	}
}

func (e *Executor) logStepFailure(st recipe.Step, stats stepStats, err error) {
	logger.LogStageEnd(e.stageContext(st), stats.rows, stats.duration, &logger.ExecutionError{
		Code:    ErrCodeDirectiveFailed,
		Message: err.Error(),
	})
}

// buildExecutionError creates the run error reported in ExecutionResult.
func buildExecutionError(err error) *wrangler.ExecutionError {
	ex := &wrangler.ExecutionError{
		Code:    ErrCodeDirectiveFailed,
		Message: err.Error(),
	}

	var parseErr *errhandling.ParseError
	var execErr *errhandling.ExecutionError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ex.Code = ErrCodeCancelled
	case errors.As(err, &parseErr):
		ex.Code = ErrCodeRecipeInvalid
		ex.Directive = parseErr.Directive
		ex.Line = parseErr.Line
		if parseErr.Argument != "" {
			ex.Details = map[string]interface{}{"argument": parseErr.Argument}
		}
	case errors.As(err, &execErr):
		ex.Directive = execErr.Directive
		ex.Line = execErr.Line
	}

	if root := errhandling.RootCause(err); root != nil && root != err {
		if ex.Details == nil {
			ex.Details = map[string]interface{}{}
		}
		ex.Details["cause"] = root.Error()
	}
	return ex
}
