package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

type Options struct {
	QueryTimeout time.Duration
	// RowLimit applies when a request does not set its own; 0 disables it.
	RowLimit int
	Logger   *slog.Logger
}

type Engine struct {
	db      *sql.DB
	dialect Dialect
	opts    Options
	logger  *slog.Logger
}

func New(db *sql.DB, dialect Dialect, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Engine{db: db, dialect: dialect, opts: opts, logger: logger}
}

func (e *Engine) Dialect() Dialect { return e.dialect }

// DB exposes the pool for maintenance tasks such as loading sample data.
func (e *Engine) DB() *sql.DB { return e.db }

func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *Engine) Close() error {
	return e.db.Close()
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	start := time.Now()
	result, err := e.execute(ctx, request)
	elapsed := time.Since(start)
	observability.ObserveQueryExecution(err, elapsed)
	if err != nil {
		e.logger.WarnContext(ctx, "query execution failed", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return query.Result{}, err
	}
	result.Duration = elapsed
	e.logger.DebugContext(ctx, "query executed", append(observability.LogAttrs(ctx),
		"rows", len(result.Rows), "duration_ms", elapsed.Milliseconds())...)
	return result, nil
}

func (e *Engine) execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("%w: sql is required", query.ErrExecution)
	}
	rowLimit := request.RowLimit
	if rowLimit <= 0 {
		rowLimit = e.opts.RowLimit
	}
	if rowLimit > 0 {
		// The newline keeps a trailing line comment from swallowing the wrapper.
		sqlText = fmt.Sprintf("SELECT * FROM (%s\n) AS q LIMIT %d", sqlText, rowLimit)
	}

	if e.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.QueryTimeout)
		defer cancel()
	}

	// Every query runs in a transaction that is never committed.
	tx, err := e.db.BeginTx(ctx, e.txOptions())
	if err != nil {
		return query.Result{}, fmt.Errorf("%w: begin transaction: %w", query.ErrExecution, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("%w: execute query: %w", query.ErrExecution, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("%w: query columns: %w", query.ErrExecution, err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("%w: scan row: %w", query.ErrExecution, err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("%w: iterate rows: %w", query.ErrExecution, err)
	}

	return query.Result{Columns: columns, Rows: resultRows}, nil
}

// txOptions marks the transaction read-only where the driver honours it.
// DuckDB rejects the flag and SQLite ignores it; there the rollback undoes
// any write.
func (e *Engine) txOptions() *sql.TxOptions {
	if e.dialect == DialectPostgres {
		return &sql.TxOptions{ReadOnly: true}
	}
	return nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
