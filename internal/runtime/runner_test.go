package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cannectors/wrangler/internal/errhandling"
	"github.com/cannectors/wrangler/pkg/row"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

func amounts(values ...string) []*row.Row {
	rows := make([]*row.Row, len(values))
	for i, v := range values {
		rows[i] = row.Of("id", i, "amount", v)
	}
	return rows
}

func TestRunnerMergesBatchesInOrder(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		workers   int
	}{
		{"single worker", 2, 1},
		{"parallel workers", 2, 3},
		{"one batch", 100, 4},
		{"row per batch", 1, 2},
	}

	input := []string{"$1.00", "bad", "$3.00", "$4.00", "oops", "$6.00", "$7.00"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRunner(Config{
				PipelineName: "orders",
				Recipe:       "parse-as-currency :amount :usd",
				BatchSize:    tt.batchSize,
				Workers:      tt.workers,
			})
			if err != nil {
				t.Fatalf("NewRunner() error = %v", err)
			}

			out, err := r.Run(context.Background(), amounts(input...))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			var ids []int64
			for _, rr := range out.Rows {
				v, _ := rr.Get("id")
				id, _ := v.AsInt()
				ids = append(ids, id)
			}
			if fmt.Sprint(ids) != "[0 2 3 5 6]" {
				t.Errorf("row ids = %v, want [0 2 3 5 6]", ids)
			}

			var errIdx []int
			for _, rec := range out.Errors {
				errIdx = append(errIdx, rec.Index)
			}
			if fmt.Sprint(errIdx) != "[1 4]" {
				t.Errorf("error indexes = %v, want [1 4]", errIdx)
			}

			res := out.Result
			if res.Status != wrangler.StatusPartial {
				t.Errorf("Status = %q, want partial", res.Status)
			}
			if res.RowsIn != 7 || res.RowsOut != 5 || res.RowsErrored != 2 {
				t.Errorf("counts = in %d out %d errored %d", res.RowsIn, res.RowsOut, res.RowsErrored)
			}
			if res.RunID == "" || res.PipelineName != "orders" {
				t.Errorf("identity = %q %q", res.RunID, res.PipelineName)
			}
		})
	}
}

func TestRunnerSuccessStatus(t *testing.T) {
	r, err := NewRunner(Config{Recipe: "filter-row-if-true amount == 'x'"})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	out, err := r.Run(context.Background(), amounts("x", "y"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Result.Status != wrangler.StatusSuccess {
		t.Errorf("Status = %q, want success", out.Result.Status)
	}
	if out.Result.RowsFiltered != 1 || out.Result.RowsOut != 1 {
		t.Errorf("filtered = %d, out = %d", out.Result.RowsFiltered, out.Result.RowsOut)
	}
}

func TestRunnerEmptyInput(t *testing.T) {
	r, err := NewRunner(Config{Recipe: "drop :a", Workers: 4})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	out, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Result.Status != wrangler.StatusSuccess || len(out.Rows) != 0 {
		t.Errorf("Run() = %+v", out.Result)
	}
}

func TestRunnerFatalError(t *testing.T) {
	r, err := NewRunner(Config{
		Recipe:    "parse-as-currency :amount :usd\nfail usd > 5",
		BatchSize: 2,
		Workers:   2,
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	out, err := r.Run(context.Background(), amounts("$1.00", "$2.00", "$9.00", "$3.00"))
	if !errhandling.IsFatal(err) {
		t.Fatalf("Run() error = %v, want fatal", err)
	}
	res := out.Result
	if res.Status != wrangler.StatusError {
		t.Errorf("Status = %q, want error", res.Status)
	}
	if res.Error == nil || res.Error.Directive != "fail" || res.Error.Line != 2 {
		t.Errorf("Error = %+v, want fail at line 2", res.Error)
	}
	if res.Error.Code != ErrCodeDirectiveFailed {
		t.Errorf("Code = %q, want %q", res.Error.Code, ErrCodeDirectiveFailed)
	}
}

func TestNewRunnerRejectsInvalidRecipe(t *testing.T) {
	_, err := NewRunner(Config{Recipe: "drop :a\nrename :b"})
	var parseErr *errhandling.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("NewRunner() error = %v, want *errhandling.ParseError", err)
	}
	if parseErr.Line != 2 {
		t.Errorf("Line = %d, want 2", parseErr.Line)
	}
}

func TestRunnerCancelled(t *testing.T) {
	r, err := NewRunner(Config{Recipe: "drop :a", BatchSize: 1})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.Run(ctx, amounts("a", "b", "c"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if out.Result.Error == nil || out.Result.Error.Code != ErrCodeCancelled {
		t.Errorf("Error = %+v, want %s", out.Result.Error, ErrCodeCancelled)
	}
}
