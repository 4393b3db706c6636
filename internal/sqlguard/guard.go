package sqlguard

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopqa/shopqa/internal/apperr"
)

// Validate accepts exactly one read-only SELECT statement and returns it cleaned.
// The leading token must be SELECT (any case) and no statement terminator may
// remain outside string literals and comments once trailing terminators are removed.
// Literals are scanned twice, once with doubled-quote escapes only and once also
// honouring backslash escapes as MySQL does; a terminator seen by either scan rejects.
// Everything else about the statement is left for the engine to reject.
func Validate(sqlText string) (string, error) {
	cleaned := Clean(sqlText)
	if cleaned == "" {
		return "", apperr.New(apperr.UnsafeQuery, "empty statement")
	}
	if token := leadingToken(cleaned); !strings.EqualFold(token, "select") {
		if token == "" {
			r, _ := utf8.DecodeRuneInString(cleaned)
			token = string(r)
		}
		return "", apperr.New(apperr.UnsafeQuery, "only SELECT statements are allowed, got "+strings.ToUpper(token))
	}
	if strings.Contains(maskStringsAndComments(cleaned, false), ";") ||
		strings.Contains(maskStringsAndComments(cleaned, true), ";") {
		return "", apperr.New(apperr.UnsafeQuery, "multiple statements are not allowed")
	}
	return cleaned, nil
}

func leadingToken(sqlText string) string {
	end := strings.IndexFunc(sqlText, func(r rune) bool {
		return !(unicode.IsLetter(r) || r == '_')
	})
	if end < 0 {
		return sqlText
	}
	return sqlText[:end]
}

// maskStringsAndComments blanks out literals, quoted identifiers and comments so
// that text inside them is not mistaken for statement structure. The result has
// the same byte length as sqlText, so offsets found in it apply to the input.
func maskStringsAndComments(sqlText string, backslashEscapes bool) string {
	masked := []byte(sqlText)
	blank := func(from, to int) {
		for j := from; j < to && j < len(masked); j++ {
			masked[j] = ' '
		}
	}
	n := len(sqlText)
	for i := 0; i < n; {
		switch {
		case sqlText[i] == '-' && i+1 < n && sqlText[i+1] == '-':
			start := i
			for i < n && sqlText[i] != '\n' {
				i++
			}
			blank(start, i)
		case sqlText[i] == '/' && i+1 < n && sqlText[i+1] == '*':
			start := i
			i += 2
			for i+1 < n && !(sqlText[i] == '*' && sqlText[i+1] == '/') {
				i++
			}
			i += 2
			blank(start, i)
		case sqlText[i] == '\'' || sqlText[i] == '"' || sqlText[i] == '`':
			quote := sqlText[i]
			start := i
			i++
			for i < n {
				if backslashEscapes && quote != '`' && sqlText[i] == '\\' {
					i += 2
					continue
				}
				if sqlText[i] == quote {
					if i+1 < n && sqlText[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			blank(start, i)
		default:
			i++
		}
	}
	return string(masked)
}
