package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopqa/shopqa/internal/apperr"
	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/nl2sql"
	"github.com/shopqa/shopqa/internal/observability"
	"github.com/shopqa/shopqa/internal/query"
	"github.com/shopqa/shopqa/internal/query/sqldb"
)

const revenueSQL = "SELECT p.product_name, SUM(oi.quantity * oi.price_per_unit) AS revenue " +
	"FROM order_items oi JOIN products p ON p.product_id = oi.product_id " +
	"GROUP BY p.product_name ORDER BY revenue DESC;"

func TestAnswerTopProductsByRevenue(t *testing.T) {
	model := &scriptedModel{responses: map[string]string{
		nl2sql.PurposeSynthesis:      fmt.Sprintf(`{"sql": %q}`, revenueSQL),
		nl2sql.PurposeInterpretation: `{"answer": "Product 30 earns the most revenue."}`,
	}}
	service := newSQLiteService(t, model)

	payload, err := service.Answer(context.Background(), "Show top 5 products by revenue", 1)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(payload.Query, "order_items") || !strings.Contains(payload.Query, "quantity * oi.price_per_unit") {
		t.Fatalf("query = %q", payload.Query)
	}
	if strings.HasSuffix(payload.Query, ";") {
		t.Fatalf("query kept terminator: %q", payload.Query)
	}
	if len(payload.Rows) != 25 {
		t.Fatalf("rows = %d, want 25", len(payload.Rows))
	}
	if payload.TotalRows != 30 || payload.TotalPages != 2 {
		t.Fatalf("total rows/pages = %d/%d", payload.TotalRows, payload.TotalPages)
	}
	if payload.Rows[0][0] != "Product 30" {
		t.Fatalf("first row = %v", payload.Rows[0])
	}
	if payload.Answer != "Product 30 earns the most revenue." {
		t.Fatalf("answer = %q", payload.Answer)
	}
	if payload.Page != 1 || payload.Question != "Show top 5 products by revenue" {
		t.Fatalf("payload = %+v", payload)
	}
	if got := model.calls[nl2sql.PurposeInterpretation]; got != 1 {
		t.Fatalf("interpretation calls = %d", got)
	}
}

func TestAnswerCustomersPageTwoUsesFallback(t *testing.T) {
	model := &scriptedModel{responses: map[string]string{
		nl2sql.PurposeSynthesis: `{"sql": "SELECT customer_id, first_name || ' ' || last_name AS customer_name FROM customers WHERE state = 'California' ORDER BY customer_id"}`,
	}}
	service := newSQLiteService(t, model)

	payload, err := service.Answer(context.Background(), "List customers from California", 2)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if payload.Answer != nl2sql.FallbackAnswer {
		t.Fatalf("answer = %q", payload.Answer)
	}
	if model.calls[nl2sql.PurposeInterpretation] != 0 {
		t.Fatal("interpretation model was called")
	}
	if payload.TotalRows != 30 || payload.TotalPages != 2 {
		t.Fatalf("total rows/pages = %d/%d", payload.TotalRows, payload.TotalPages)
	}
	if len(payload.Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(payload.Rows))
	}
	// California customers are the even ids, so offset 25 starts at the 26th: id 52.
	if payload.Rows[0][0] != int64(52) {
		t.Fatalf("first row = %v", payload.Rows[0])
	}
}

func TestAnswerRejectsUnsafeStatementBeforeExecution(t *testing.T) {
	engine := &recordingEngine{}
	service := &Service{
		Synthesizer: staticSynthesizer("DROP TABLE customers"),
		Executor:    query.NewExecutor(engine),
	}
	payload, err := service.Answer(context.Background(), "delete everything", 1)
	if !apperr.Is(err, apperr.UnsafeQuery) {
		t.Fatalf("err = %v", err)
	}
	if payload.Rows != nil {
		t.Fatalf("rows = %v", payload.Rows)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine called %d time(s)", len(engine.requests))
	}
}

func TestAnswerValidatesInput(t *testing.T) {
	service := &Service{Synthesizer: staticSynthesizer("SELECT 1"), Executor: query.NewExecutor(&recordingEngine{})}
	for _, page := range []int{0, -3} {
		if _, err := service.Answer(context.Background(), "List customers", page); !apperr.Is(err, apperr.InvalidPage) {
			t.Fatalf("page %d: err = %v", page, err)
		}
	}
	if _, err := service.Answer(context.Background(), "   ", 1); !apperr.Is(err, apperr.InvalidQuestion) {
		t.Fatalf("blank question: err = %v", err)
	}
}

func TestAnswerPropagatesStageErrors(t *testing.T) {
	cases := []struct {
		name    string
		service *Service
		kind    apperr.Kind
	}{
		{
			name:    "synthesis",
			service: &Service{Synthesizer: failingSynthesizer{}, Executor: query.NewExecutor(&recordingEngine{})},
			kind:    apperr.Synthesis,
		},
		{
			name:    "execution",
			service: &Service{Synthesizer: staticSynthesizer("SELECT * FROM nope"), Executor: query.NewExecutor(&recordingEngine{pageErr: errors.New("no such table: nope")})},
			kind:    apperr.Execution,
		},
		{
			name:    "count",
			service: &Service{Synthesizer: staticSynthesizer("SELECT 1"), Executor: query.NewExecutor(&recordingEngine{countErr: errors.New("database is locked")})},
			kind:    apperr.Count,
		},
	}
	for _, tc := range cases {
		payload, err := tc.service.Answer(context.Background(), "total revenue", 1)
		if !apperr.Is(err, tc.kind) {
			t.Fatalf("%s: err = %v", tc.name, err)
		}
		if payload.Rows != nil || payload.Query != "" {
			t.Fatalf("%s: payload populated on failure: %+v", tc.name, payload)
		}
	}
}

func TestInterpretationFailureFallsBack(t *testing.T) {
	engine := &recordingEngine{rows: [][]any{{"Toys", 10.5}}, count: 1}
	model := &scriptedModel{failures: map[string]error{nl2sql.PurposeInterpretation: errors.New("503 from model")}}
	service := &Service{
		Synthesizer: staticSynthesizer("SELECT category_name, SUM(x) FROM t"),
		Executor:    query.NewExecutor(engine),
		Interpreter: nl2sql.NewInterpreter(model, nil),
		Logger:      observability.DiscardLogger(),
	}
	payload, err := service.Answer(context.Background(), "total revenue by category", 1)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if payload.Answer != nl2sql.FallbackAnswer {
		t.Fatalf("answer = %q", payload.Answer)
	}
	if len(payload.Rows) != 1 || payload.TotalPages != 1 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestAnswerWithoutInterpreterUsesFallback(t *testing.T) {
	service := &Service{
		Synthesizer: staticSynthesizer("SELECT 1"),
		Executor:    query.NewExecutor(&recordingEngine{count: 0}),
		PageSize:    10,
	}
	payload, err := service.Answer(context.Background(), "total revenue", 3)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if payload.Answer != nl2sql.FallbackAnswer || payload.TotalPages != 0 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Columns == nil || payload.Rows == nil {
		t.Fatal("columns and rows should be empty, not nil")
	}
}

func TestAnswerUsesPageWindow(t *testing.T) {
	engine := &recordingEngine{count: 95}
	service := &Service{Synthesizer: staticSynthesizer("SELECT * FROM orders"), Executor: query.NewExecutor(engine), PageSize: 10}
	payload, err := service.Answer(context.Background(), "list orders", 4)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := engine.requests[0].SQL; got != "SELECT * FROM orders\nLIMIT 10 OFFSET 30" {
		t.Fatalf("page sql = %q", got)
	}
	if got := engine.requests[1].SQL; got != "SELECT COUNT(*) FROM (SELECT * FROM orders\n) AS total" {
		t.Fatalf("count sql = %q", got)
	}
	if payload.TotalPages != 10 {
		t.Fatalf("total pages = %d", payload.TotalPages)
	}
}

func newSQLiteService(t *testing.T, model nl2sql.Model) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecommerce.db")
	db, err := sqldb.SQLite.Open(path, time.Second, false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE customers (customer_id INTEGER, first_name TEXT, last_name TEXT, state TEXT)`,
		`CREATE TABLE products (product_id INTEGER, product_name TEXT, price REAL, cogs REAL, category_id INTEGER)`,
		`CREATE TABLE order_items (order_item_id INTEGER, order_id INTEGER, product_id INTEGER, quantity INTEGER, price_per_unit REAL)`,
	}
	for i := 1; i <= 60; i++ {
		state := "Texas"
		if i%2 == 0 {
			state = "California"
		}
		statements = append(statements, fmt.Sprintf(`INSERT INTO customers VALUES (%d, 'First%d', 'Last%d', '%s')`, i, i, i, state))
	}
	for i := 1; i <= 30; i++ {
		statements = append(statements,
			fmt.Sprintf(`INSERT INTO products VALUES (%d, 'Product %d', %d.0, 1.0, 1)`, i, i, i),
			fmt.Sprintf(`INSERT INTO order_items VALUES (%d, %d, %d, %d, %d.0)`, i, i, i, i, i),
		)
	}
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			t.Fatalf("seed %q: %v", statement, err)
		}
	}
	_ = db.Close()

	engine, err := sqldb.NewEngine(config.StoreConfig{Driver: config.DriverSQLite, DSN: path, ConnectTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return &Service{
		Synthesizer: nl2sql.NewTranslator(model),
		Executor:    query.NewExecutor(engine),
		Interpreter: nl2sql.NewInterpreter(model, nil),
		PageSize:    25,
		Logger:      observability.DiscardLogger(),
	}
}

type scriptedModel struct {
	responses map[string]string
	failures  map[string]error
	calls     map[string]int
}

func (m *scriptedModel) Complete(_ context.Context, purpose, _ string) (string, error) {
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[purpose]++
	if err := m.failures[purpose]; err != nil {
		return "", err
	}
	return m.responses[purpose], nil
}

type staticSynthesizer string

func (s staticSynthesizer) Synthesize(context.Context, string) (string, error) {
	return string(s), nil
}

type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(context.Context, string) (string, error) {
	return "", apperr.New(apperr.Synthesis, "model returned prose")
}

type recordingEngine struct {
	requests []query.Request
	rows     [][]any
	count    int64
	pageErr  error
	countErr error
}

func (e *recordingEngine) Execute(_ context.Context, request query.Request) (query.Result, error) {
	e.requests = append(e.requests, request)
	if request.Kind == query.KindCount {
		if e.countErr != nil {
			return query.Result{}, e.countErr
		}
		return query.Result{Columns: []string{"COUNT(*)"}, Rows: [][]any{{e.count}}}, nil
	}
	if e.pageErr != nil {
		return query.Result{}, e.pageErr
	}
	return query.Result{Columns: []string{"c"}, Rows: e.rows}, nil
}
