// Package sqlguard holds the text-level handling of model-produced SQL: trimming
// terminators, pagination rewrites and the SELECT-only safety check.
//
// Clean and StripPagination are not a security boundary. Validate is.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	trailingPagination = regexp.MustCompile(`(?i)\s+limit\s+\d+(?:\s+offset\s+\d+|\s*,\s*\d+)?\s*$`)
	limitKeyword       = regexp.MustCompile(`(?i)\blimit\b`)
)

// Clean removes surrounding whitespace and any trailing statement terminators.
// Clean(Clean(x)) == Clean(x).
func Clean(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// StripPagination cleans sqlText and removes a trailing LIMIT n [OFFSET m] clause.
// Comments after the clause go with it; text inside literals and comments never matches.
func StripPagination(sqlText string) string {
	cleaned := Clean(sqlText)
	loc := trailingPagination.FindStringIndex(maskStringsAndComments(cleaned, false))
	if loc == nil {
		return cleaned
	}
	return cleaned[:loc[0]]
}

// HasLimit reports whether the statement contains a LIMIT keyword outside string
// literals and comments. The match is on the whole word, so columns such as
// credit_limit do not count.
func HasLimit(sqlText string) bool {
	return limitKeyword.MatchString(maskStringsAndComments(sqlText, false))
}

// Paginate appends LIMIT/OFFSET unless the statement already limits itself.
// The clause starts on its own line so a trailing line comment cannot swallow it.
func Paginate(sqlText string, pageSize, offset int) string {
	cleaned := Clean(sqlText)
	if HasLimit(cleaned) {
		return cleaned
	}
	return fmt.Sprintf("%s\nLIMIT %d OFFSET %d", cleaned, pageSize, offset)
}

// CountSQL wraps the non-paginated statement in a COUNT(*) subquery.
func CountSQL(sqlText string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s\n) AS total", StripPagination(sqlText))
}
