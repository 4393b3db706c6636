package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopqa/shopqa/internal/apperr"
	"github.com/shopqa/shopqa/internal/shop"
	"github.com/shopqa/shopqa/internal/sqlguard"
)

type schemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaTable struct {
	Name    string         `json:"name"`
	Columns []schemaColumn `json:"columns"`
}

type translateRequest struct {
	Question string `json:"question"`
}

func handleSchema(w http.ResponseWriter, _ *http.Request) {
	defs := shop.Tables()
	tables := make([]schemaTable, 0, len(defs))
	for _, def := range defs {
		columns := make([]schemaColumn, 0, len(def.Columns))
		for _, column := range def.Columns {
			columns = append(columns, schemaColumn{Name: column.Name, Type: string(column.Type)})
		}
		tables = append(tables, schemaTable{Name: def.Name, Columns: columns})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":     tables,
		"descriptor": shop.Descriptor,
	})
}

// handleTranslate synthesizes and guards SQL for a question without executing it.
func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Synthesizer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}

	var req translateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeAppError(r, w, apperr.New(apperr.InvalidQuestion, "question is required"))
		return
	}

	sqlText, err := deps.Synthesizer.Synthesize(r.Context(), question)
	if err != nil {
		writeAppError(r, w, err)
		return
	}
	guarded, err := sqlguard.Validate(sqlText)
	if err != nil {
		writeAppError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question": question,
		"query":    guarded,
	})
}
