package sqldb

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/shopqa/shopqa/internal/config"
)

// Dialect captures what differs between the supported database/sql drivers:
// how to open a bounded-timeout handle, how to pin a session read-only, and the
// bind placeholder syntax.
type Dialect struct {
	Driver string
	// ReadOnlyStatement runs on every query connection before the statement.
	ReadOnlyStatement string
	open              func(dsn string, timeout time.Duration, readOnly bool) (*sql.DB, error)
	dollarPlaceholder bool
}

var (
	SQLite = Dialect{
		Driver:            config.DriverSQLite,
		ReadOnlyStatement: "PRAGMA query_only = ON",
		open:              openSQLite,
	}
	Postgres = Dialect{
		Driver:            config.DriverPostgres,
		ReadOnlyStatement: "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY",
		open:              openPostgres,
		dollarPlaceholder: true,
	}
	MySQL = Dialect{
		Driver:            config.DriverMySQL,
		ReadOnlyStatement: "SET SESSION TRANSACTION READ ONLY",
		open:              openMySQL,
	}
)

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case config.DriverSQLite:
		return SQLite, nil
	case config.DriverPostgres, "postgres", "postgresql":
		return Postgres, nil
	case config.DriverMySQL:
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Open returns a handle for dsn. readOnly selects the query path; the loader
// opens writable handles.
func (d Dialect) Open(dsn string, timeout time.Duration, readOnly bool) (*sql.DB, error) {
	if d.open == nil {
		return nil, fmt.Errorf("dialect %q cannot open connections", d.Driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	return d.open(dsn, timeout, readOnly)
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d.dollarPlaceholder {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func openSQLite(dsn string, timeout time.Duration, readOnly bool) (*sql.DB, error) {
	return sql.Open(config.DriverSQLite, SQLiteDSN(dsn, timeout, readOnly))
}

// SQLiteDSN turns a file path into a URI DSN carrying the busy timeout and,
// for query handles, mode=ro. Parameters already present are left untouched.
func SQLiteDSN(path string, timeout time.Duration, readOnly bool) string {
	dsn := strings.TrimSpace(path)
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	var params []string
	if readOnly && !strings.Contains(dsn, "mode=") {
		params = append(params, "mode=ro")
	}
	if timeout > 0 && !strings.Contains(dsn, "busy_timeout") {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", timeout.Milliseconds()))
	}
	if len(params) == 0 {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join(params, "&")
}

func openPostgres(dsn string, timeout time.Duration, _ bool) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if timeout > 0 {
		connConfig.ConnectTimeout = timeout
	}
	return stdlib.OpenDB(*connConfig), nil
}

func openMySQL(dsn string, timeout time.Duration, _ bool) (*sql.DB, error) {
	mysqlConfig, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if timeout > 0 {
		mysqlConfig.Timeout = timeout
	}
	connector, err := mysql.NewConnector(mysqlConfig)
	if err != nil {
		return nil, fmt.Errorf("build mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}
