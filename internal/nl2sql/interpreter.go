package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopqa/shopqa/internal/apperr"
)

// FallbackAnswer is returned instead of a narrative answer when the question
// does not call for one, or when interpretation fails.
const FallbackAnswer = "Detailed results are shown in the table."

// Predicate decides whether a question warrants a second model call.
type Predicate func(question string) bool

// TriggerWords are matched case-insensitively anywhere in the question.
var TriggerWords = []string{
	"total", "sum", "average", "avg",
	"top", "highest", "lowest",
	"trend", "revenue", "profit", "count",
}

func KeywordPredicate(words ...string) Predicate {
	if len(words) == 0 {
		words = TriggerWords
	}
	lowered := make([]string, 0, len(words))
	for _, word := range words {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			lowered = append(lowered, word)
		}
	}
	return func(question string) bool {
		question = strings.ToLower(question)
		for _, word := range lowered {
			if strings.Contains(question, word) {
				return true
			}
		}
		return false
	}
}

type Interpreter struct {
	model Model
	needs Predicate
}

func NewInterpreter(model Model, needs Predicate) *Interpreter {
	if needs == nil {
		needs = KeywordPredicate()
	}
	return &Interpreter{model: model, needs: needs}
}

func (i *Interpreter) NeedsInterpretation(question string) bool {
	return i.needs(question)
}

// Interpret asks the model to explain an already-fetched page of results.
func (i *Interpreter) Interpret(ctx context.Context, question string, columns []string, rows [][]any) (string, error) {
	if i.model == nil {
		return "", apperr.New(apperr.Interpretation, "language model is not configured")
	}
	prompt, err := InterpretationPrompt(question, columns, rows)
	if err != nil {
		return "", apperr.Wrap(apperr.Interpretation, "build prompt", err)
	}
	raw, err := i.model.Complete(ctx, PurposeInterpretation, prompt)
	if err != nil {
		return "", apperr.Wrap(apperr.Interpretation, "call language model", err)
	}
	answer := extractAnswer(raw)
	if answer == "" {
		return "", apperr.New(apperr.Interpretation, "model returned an empty answer")
	}
	return answer, nil
}

func InterpretationPrompt(question string, columns []string, rows [][]any) (string, error) {
	if rows == nil {
		rows = [][]any{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}
	return fmt.Sprintf(
		"You are a data analyst for an e-commerce store.\n\n"+
			"Return JSON exactly like:\n{ \"answer\": \"<ANSWER>\" }\n\n"+
			"Rules:\n- Answer the question using only the results below\n- Be concise\n- Mention concrete figures\n\n"+
			"User question:\n%s\n\nColumns:\n%s\n\nRows:\n%s\n",
		question, string(columnsJSON), string(rowsJSON),
	), nil
}

// extractAnswer prefers the "answer" field and otherwise uses the response text verbatim.
func extractAnswer(raw string) string {
	var payload struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err == nil && payload.Answer != nil {
		return strings.TrimSpace(*payload.Answer)
	}
	return strings.TrimSpace(raw)
}
