package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopqa/shopqa/internal/query/sqldb"
	"github.com/shopqa/shopqa/internal/shop"
)

// TableCount reports how many rows were written to one table.
type TableCount struct {
	Table string
	Rows  int
}

// Loader recreates the shop tables in a database/sql store and inserts a Dataset.
type Loader struct {
	DB      *sql.DB
	Dialect sqldb.Dialect
	Logger  *slog.Logger
}

// Load drops and recreates every table, then inserts data table by table in load
// order. Each table is written in its own transaction.
func (l *Loader) Load(ctx context.Context, data Dataset) ([]TableCount, error) {
	if l.DB == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if err := l.Reset(ctx); err != nil {
		return nil, err
	}

	counts := make([]TableCount, 0, len(data))
	for _, table := range shop.Tables() {
		rows := data[table.Name]
		if err := l.insert(ctx, table, rows); err != nil {
			return counts, err
		}
		counts = append(counts, TableCount{Table: table.Name, Rows: len(rows)})
		if l.Logger != nil {
			l.Logger.Info("table loaded", slog.String("table", table.Name), slog.Int("rows", len(rows)))
		}
	}
	return counts, nil
}

// Reset drops and recreates the nine tables.
func (l *Loader) Reset(ctx context.Context) error {
	creates, err := CreateStatements(l.Dialect.Driver)
	if err != nil {
		return err
	}
	for _, statement := range append(DropStatements(), creates...) {
		if _, err := l.DB.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(statement), err)
		}
	}
	return nil
}

func (l *Loader) insert(ctx context.Context, table shop.Table, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, InsertStatement(l.Dialect, table))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table.Name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("insert into %s row %d: %d values, want %d", table.Name, i+1, len(row), len(table.Columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s row %d: %w", table.Name, i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table.Name, err)
	}
	return nil
}

// InsertStatement builds a single-row INSERT covering every column of table.
func InsertStatement(dialect sqldb.Dialect, table shop.Table) string {
	placeholders := make([]string, len(table.Columns))
	for i := range table.Columns {
		placeholders[i] = dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table.Name, strings.Join(table.ColumnNames(), ", "), strings.Join(placeholders, ", "))
}

func firstLine(statement string) string {
	if index := strings.IndexByte(statement, '\n'); index >= 0 {
		return statement[:index]
	}
	return statement
}
