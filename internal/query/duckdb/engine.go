// Package duckdb answers statements with an in-memory DuckDB whose tables are
// views over a Parquet snapshot downloaded from the object store.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/shopqa/shopqa/internal/query"
	"github.com/shopqa/shopqa/internal/storage"
)

type Engine struct {
	Store    storage.ObjectStore
	Snapshot string
}

func NewEngine(store storage.ObjectStore, snapshot string) *Engine {
	return &Engine{Store: store, Snapshot: snapshot}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := strings.TrimSpace(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if e.Store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}

	start := time.Now()
	available, err := e.snapshotTables(ctx)
	if err != nil {
		return query.Result{}, err
	}

	workDir, err := os.MkdirTemp("", "shopqa-query-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPaths := map[string]string{}
	for _, table := range referencedTables(sqlText, available) {
		localPath := filepath.Join(workDir, table+".parquet")
		if err := e.download(ctx, available[table], localPath); err != nil {
			return query.Result{}, err
		}
		localPaths[table] = localPath
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	for table, localPath := range localPaths {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table), quoteString(localPath))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return query.Result{}, fmt.Errorf("create view for table %q: %w", table, err)
		}
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
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

// snapshotTables maps table name to object key for every table exported in the snapshot.
func (e *Engine) snapshotTables(ctx context.Context) (map[string]string, error) {
	prefix, err := storage.SnapshotPrefix(e.Snapshot)
	if err != nil {
		return nil, err
	}
	objects, err := e.Store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshot %q: %w", e.Snapshot, err)
	}
	tables := make(map[string]string, len(objects))
	for _, object := range objects {
		if table, ok := storage.TableFromPath(e.Snapshot, object.Key); ok {
			tables[table] = object.Key
		}
	}
	return tables, nil
}

func (e *Engine) download(ctx context.Context, key, localPath string) error {
	reader, err := e.Store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	if err := reader.Close(); err != nil {
		return fmt.Errorf("close object %q: %w", key, err)
	}
	return nil
}

// referencedTables returns, sorted, the available tables whose name appears as a
// whole word in sqlText. Tables the statement never mentions are not downloaded.
func referencedTables(sqlText string, available map[string]string) []string {
	lowered := strings.ToLower(sqlText)
	var tables []string
	for table := range available {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(table)) + `\b`)
		if pattern.MatchString(lowered) {
			tables = append(tables, table)
		}
	}
	sort.Strings(tables)
	return tables
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
