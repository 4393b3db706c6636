package query

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopqa/shopqa/internal/apperr"
	"github.com/shopqa/shopqa/internal/observability"
	"github.com/shopqa/shopqa/internal/sqlguard"
)

// Executor is the single admission gate in front of the relational store. Every
// statement, page or count, runs while holding mu, so at most one statement is in
// flight per process. Construct one Executor per process and share it.
type Executor struct {
	engine Engine
	mu     sync.Mutex
}

func NewExecutor(engine Engine) *Executor {
	return &Executor{engine: engine}
}

// ExecutePage runs sqlText with LIMIT pageSize OFFSET offset appended, unless the
// statement already carries a LIMIT clause.
func (e *Executor) ExecutePage(ctx context.Context, sqlText string, pageSize, offset int) (Result, error) {
	if pageSize <= 0 {
		return Result{}, apperr.New(apperr.Execution, "page size must be > 0")
	}
	if offset < 0 {
		return Result{}, apperr.New(apperr.Execution, "offset must be >= 0")
	}
	result, err := e.run(ctx, Request{SQL: sqlguard.Paginate(sqlText, pageSize, offset), Kind: KindPage})
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Execution, "execute statement", err)
	}
	return result, nil
}

// CountTotal returns the number of rows sqlText yields without pagination.
func (e *Executor) CountTotal(ctx context.Context, sqlText string) (int64, error) {
	result, err := e.run(ctx, Request{SQL: sqlguard.CountSQL(sqlText), Kind: KindCount})
	if err != nil {
		return 0, apperr.Wrap(apperr.Count, "count rows", err)
	}
	if len(result.Rows) != 1 || len(result.Rows[0]) != 1 {
		return 0, apperr.New(apperr.Count, fmt.Sprintf("count returned %d row(s)", len(result.Rows)))
	}
	total, err := toInt64(result.Rows[0][0])
	if err != nil {
		return 0, apperr.Wrap(apperr.Count, "decode count", err)
	}
	if total < 0 {
		return 0, apperr.New(apperr.Count, fmt.Sprintf("negative count %d", total))
	}
	return total, nil
}

// Ping runs a trivial statement through the gate.
func (e *Executor) Ping(ctx context.Context) error {
	_, err := e.run(ctx, Request{SQL: "SELECT 1", Kind: KindPing})
	return err
}

func (e *Executor) run(ctx context.Context, request Request) (Result, error) {
	if e.engine == nil {
		return Result{}, fmt.Errorf("query engine is not configured")
	}
	waitStart := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	observability.ObserveGateWait(time.Since(waitStart))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	result, err := e.engine.Execute(ctx, request)
	observability.ObserveStatement(request.Kind, time.Since(start), err)
	return result, err
}

// TotalPages is ceil(totalRows / pageSize).
func TotalPages(totalRows int64, pageSize int) int {
	if totalRows <= 0 || pageSize <= 0 {
		return 0
	}
	return int((totalRows + int64(pageSize) - 1) / int64(pageSize))
}

func toInt64(value any) (int64, error) {
	switch typed := value.(type) {
	case int64:
		return typed, nil
	case int32:
		return int64(typed), nil
	case int:
		return int64(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return 0, fmt.Errorf("count %d overflows int64", typed)
		}
		return int64(typed), nil
	case float64:
		return int64(typed), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(typed)), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", value)
	}
}
