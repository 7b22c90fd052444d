package records

import (
	"context"
	"errors"
)

// ErrQueryUnsupported is returned by stores that only accept writes.
var ErrQueryUnsupported = errors.New("records: query not supported")

// Appender accepts records.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}

// Store persists records and allows querying them back.
type Store interface {
	Appender
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// AppenderFunc adapts a function to Appender.
type AppenderFunc func(ctx context.Context, rec Record) error

func (f AppenderFunc) Append(ctx context.Context, rec Record) error { return f(ctx, rec) }

// NopStore discards everything.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// WithRunID stamps every record appended through it with id.
func WithRunID(next Appender, id string) Appender {
	return AppenderFunc(func(ctx context.Context, rec Record) error {
		if rec.RunID == "" {
			rec.RunID = id
		}
		return next.Append(ctx, rec)
	})
}
