// Package apperr defines the error kinds a question-answering request can fail with.
// Components wrap their failures in *Error so the HTTP layer can map a kind to a
// status code without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Synthesis means the language model produced no usable SQL.
	Synthesis Kind = "synthesis"
	// UnsafeQuery means a statement failed the SELECT-only guard.
	UnsafeQuery Kind = "unsafe_query"
	// Execution means the relational engine rejected or failed the page statement.
	Execution Kind = "execution"
	// Count means the COUNT(*) wrapper failed after the page statement succeeded.
	Count Kind = "count"
	// Interpretation means the second model call failed.
	Interpretation Kind = "interpretation"
	// InvalidPage means the requested page number is below 1.
	InvalidPage Kind = "invalid_page"
	// InvalidQuestion means the question is blank.
	InvalidQuestion Kind = "invalid_question"
)

// Error wraps an underlying error with a kind and a short message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error             { return &Error{Kind: kind, Message: msg} }
func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Message: msg, Err: err} }

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
