package nl2sql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopqa/shopqa/internal/apperr"
	"github.com/shopqa/shopqa/internal/shop"
	"github.com/shopqa/shopqa/internal/sqlguard"
)

// Synthesizer turns a question into a single SQL statement.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string) (string, error)
}

// Translator builds the synthesis prompt around the schema descriptor and
// extracts the "sql" field from the model's JSON answer.
type Translator struct {
	model  Model
	schema string
}

func NewTranslator(model Model) *Translator {
	return &Translator{model: model, schema: shop.Descriptor}
}

func (t *Translator) Synthesize(ctx context.Context, question string) (string, error) {
	if t.model == nil {
		return "", apperr.New(apperr.Synthesis, "language model is not configured")
	}
	raw, err := t.model.Complete(ctx, PurposeSynthesis, SynthesisPrompt(t.schema, question))
	if err != nil {
		return "", apperr.Wrap(apperr.Synthesis, "call language model", err)
	}
	sql, err := extractSQL(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.Synthesis, "parse model response", err)
	}
	return sql, nil
}

// SynthesisPrompt is deterministic for a given schema and question.
func SynthesisPrompt(schema, question string) string {
	var b strings.Builder
	b.WriteString("You are a SQLite expert.\n\n")
	b.WriteString("Return JSON exactly like:\n")
	b.WriteString(`{ "sql": "<SQL QUERY>" }`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- ONLY SELECT queries\n")
	b.WriteString("- Use proper joins\n")
	b.WriteString("- Revenue = quantity * price_per_unit\n")
	b.WriteString("- Combine customer name using:\n")
	b.WriteString("  customers.first_name || ' ' || customers.last_name AS customer_name\n\n")
	b.WriteString("Schema:\n")
	b.WriteString(schema)
	b.WriteString("\nUser question:\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

func extractSQL(raw string) (string, error) {
	var payload struct {
		SQL *string `json:"sql"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return "", fmt.Errorf("decode JSON object: %w", err)
	}
	if payload.SQL == nil {
		return "", fmt.Errorf(`response has no "sql" field`)
	}
	sql := sqlguard.Clean(*payload.SQL)
	if sql == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return sql, nil
}
