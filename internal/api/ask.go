package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopqa/shopqa/internal/apperr"
)

type askRequest struct {
	Question string `json:"question"`
	Page     *int   `json:"page,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}

	var req askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	page := 1
	if req.Page != nil {
		page = *req.Page
	}

	payload, err := deps.Asker.Answer(r.Context(), strings.TrimSpace(req.Question), page)
	if err != nil {
		writeAppError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type errorMapping struct {
	status    int
	code      string
	retryable bool
}

func mapError(err error) errorMapping {
	switch apperr.KindOf(err) {
	case apperr.Synthesis:
		return errorMapping{http.StatusBadGateway, "SYNTHESIS_FAILED", true}
	case apperr.UnsafeQuery:
		return errorMapping{http.StatusUnprocessableEntity, "UNSAFE_QUERY", false}
	case apperr.Execution:
		return errorMapping{http.StatusBadRequest, "QUERY_EXECUTION_FAILED", false}
	case apperr.Count:
		return errorMapping{http.StatusInternalServerError, "COUNT_FAILED", true}
	case apperr.InvalidPage:
		return errorMapping{http.StatusBadRequest, "INVALID_PAGE", false}
	case apperr.InvalidQuestion:
		return errorMapping{http.StatusBadRequest, "INVALID_QUESTION", false}
	default:
		return errorMapping{http.StatusInternalServerError, "INTERNAL", false}
	}
}

func writeAppError(r *http.Request, w http.ResponseWriter, err error) {
	mapping := mapError(err)
	writeError(r.Context(), w, mapping.status, mapping.code, errorMessage(err), mapping.retryable, map[string]any{"details": err.Error()})
}

// errorMessage prefers the short domain message over the wrapped chain.
func errorMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "request failed"
}
