// Package sqldb executes statements through database/sql. Every statement gets
// its own handle that is opened, pinged within the connect timeout, pinned
// read-only, and closed again.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/query"
)

type OpenFunc func() (*sql.DB, error)

type Engine struct {
	dialect        Dialect
	connectTimeout time.Duration
	open           OpenFunc
}

func NewEngine(cfg config.StoreConfig) (*Engine, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("store dsn is required")
	}
	dsn, timeout := cfg.DSN, cfg.ConnectTimeout
	return NewEngineWithOpener(dialect, timeout, func() (*sql.DB, error) {
		return dialect.Open(dsn, timeout, true)
	}), nil
}

func NewEngineWithOpener(dialect Dialect, connectTimeout time.Duration, open OpenFunc) *Engine {
	return &Engine{dialect: dialect, connectTimeout: connectTimeout, open: open}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if strings.TrimSpace(request.SQL) == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	start := time.Now()

	db, err := e.open()
	if err != nil {
		return query.Result{}, fmt.Errorf("open %s store: %w", e.dialect.Driver, err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	conn, err := e.connect(ctx, db)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = conn.Close() }()

	if e.dialect.ReadOnlyStatement != "" {
		if _, err := conn.ExecContext(ctx, e.dialect.ReadOnlyStatement); err != nil {
			return query.Result{}, fmt.Errorf("enforce read-only session: %w", err)
		}
	}

	rows, err := conn.QueryContext(ctx, request.SQL)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, query.NormalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// connect bounds only connection establishment by the connect timeout; the
// statement itself runs under the caller's context.
func (e *Engine) connect(ctx context.Context, db *sql.DB) (*sql.Conn, error) {
	connectCtx := ctx
	if e.connectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, e.connectTimeout)
		defer cancel()
	}
	if err := db.PingContext(connectCtx); err != nil {
		return nil, fmt.Errorf("connect to %s store: %w", e.dialect.Driver, err)
	}
	conn, err := db.Conn(connectCtx)
	if err != nil {
		return nil, fmt.Errorf("acquire %s connection: %w", e.dialect.Driver, err)
	}
	return conn, nil
}
