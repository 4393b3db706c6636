// Package pipeline answers a question end to end: synthesize SQL, guard it,
// fetch one page, count the full result, and optionally interpret the page.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopqa/shopqa/internal/apperr"
	"github.com/shopqa/shopqa/internal/nl2sql"
	"github.com/shopqa/shopqa/internal/observability"
	"github.com/shopqa/shopqa/internal/query"
	"github.com/shopqa/shopqa/internal/sqlguard"
)

const DefaultPageSize = 25

// Payload is the complete answer handed to the presentation layer.
type Payload struct {
	Query      string   `json:"query"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Answer     string   `json:"answer"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
	TotalRows  int64    `json:"total_rows"`
	Question   string   `json:"question"`
}

type Interpreter interface {
	NeedsInterpretation(question string) bool
	Interpret(ctx context.Context, question string, columns []string, rows [][]any) (string, error)
}

// Service wires the stages together. Interpreter may be nil, in which case every
// answer is nl2sql.FallbackAnswer.
type Service struct {
	Synthesizer nl2sql.Synthesizer
	Executor    *query.Executor
	Interpreter Interpreter
	PageSize    int
	Logger      *slog.Logger
}

func (s *Service) Answer(ctx context.Context, question string, page int) (Payload, error) {
	payload, err := s.answer(ctx, question, page)
	observability.ObserveAsk(outcome(err))
	return payload, err
}

func (s *Service) answer(ctx context.Context, question string, page int) (Payload, error) {
	if strings.TrimSpace(question) == "" {
		return Payload{}, apperr.New(apperr.InvalidQuestion, "question is required")
	}
	if page < 1 {
		return Payload{}, apperr.New(apperr.InvalidPage, "page must be >= 1")
	}
	if s.Synthesizer == nil || s.Executor == nil {
		return Payload{}, apperr.New(apperr.Synthesis, "pipeline is not configured")
	}
	pageSize := s.pageSize()
	offset := (page - 1) * pageSize

	candidate, err := s.Synthesizer.Synthesize(ctx, question)
	if err != nil {
		return Payload{}, err
	}
	statement, err := sqlguard.Validate(candidate)
	if err != nil {
		s.log(ctx, slog.LevelWarn, "rejected synthesized statement", slog.String("sql", candidate), slog.Any("error", err))
		return Payload{}, err
	}
	s.log(ctx, slog.LevelDebug, "synthesized statement", slog.String("sql", statement))

	result, err := s.Executor.ExecutePage(ctx, statement, pageSize, offset)
	if err != nil {
		return Payload{}, err
	}
	totalRows, err := s.Executor.CountTotal(ctx, statement)
	if err != nil {
		return Payload{}, err
	}

	answer, interpreted := s.interpret(ctx, question, result)

	s.log(ctx, slog.LevelInfo, "question_answered",
		slog.Int("page", page),
		slog.Int("rows", len(result.Rows)),
		slog.Int64("total_rows", totalRows),
		slog.Bool("interpreted", interpreted),
	)

	return Payload{
		Query:      statement,
		Columns:    nonNilColumns(result.Columns),
		Rows:       nonNilRows(result.Rows),
		Answer:     answer,
		Page:       page,
		TotalPages: query.TotalPages(totalRows, pageSize),
		TotalRows:  totalRows,
		Question:   question,
	}, nil
}

// interpret never fails the request: a model failure after a valid result set
// downgrades to the fallback answer.
func (s *Service) interpret(ctx context.Context, question string, result query.Result) (string, bool) {
	if s.Interpreter == nil || !s.Interpreter.NeedsInterpretation(question) {
		return nl2sql.FallbackAnswer, false
	}
	answer, err := s.Interpreter.Interpret(ctx, question, result.Columns, result.Rows)
	if err != nil {
		observability.IncrementInterpretationFallback()
		s.log(ctx, slog.LevelWarn, "interpretation failed, using fallback answer", slog.Any("error", err))
		return nl2sql.FallbackAnswer, false
	}
	return answer, true
}

func (s *Service) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return DefaultPageSize
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if s.Logger == nil {
		return
	}
	s.Logger.LogAttrs(ctx, level, msg, attrs...)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}

func nonNilColumns(columns []string) []string {
	if columns == nil {
		return []string{}
	}
	return columns
}

func nonNilRows(rows [][]any) [][]any {
	if rows == nil {
		return [][]any{}
	}
	return rows
}
