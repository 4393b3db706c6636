package query

import (
	"context"
	"time"
)

type Request struct {
	SQL string
	// Kind labels the statement for metrics and logs ("page", "count", "ping").
	Kind string
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Engine executes a single statement against the relational store.
type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

const (
	KindPage  = "page"
	KindCount = "count"
	KindPing  = "ping"
)
