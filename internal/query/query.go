package query

import (
	"context"
	"errors"
	"time"
)

// ErrExecution marks a database-side failure running a statement.
var ErrExecution = errors.New("query execution failed")

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// WithoutNullRows returns a copy holding only the rows with no nil cell.
func (r Result) WithoutNullRows() Result {
	out := Result{Columns: r.Columns, Duration: r.Duration, Rows: make([][]any, 0, len(r.Rows))}
	for _, row := range r.Rows {
		complete := true
		for _, value := range row {
			if value == nil {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

// SchemaDescriber produces the textual table/column summary handed to the model.
type SchemaDescriber interface {
	DescribeSchema(ctx context.Context, schemaName string) (string, error)
}
