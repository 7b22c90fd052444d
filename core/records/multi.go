package records

import (
	"context"
	"errors"
	"io"
)

// Multi fans records out to several appenders. Queries are served by the
// first member that is a Store.
type Multi struct {
	members []Appender
}

func NewMulti(members ...Appender) *Multi {
	return &Multi{members: members}
}

func (m *Multi) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, a := range m.members {
		if err := a.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Query(ctx context.Context, q Query) ([]Record, error) {
	for _, a := range m.members {
		if s, ok := a.(Store); ok {
			return s.Query(ctx, q)
		}
	}
	return nil, ErrQueryUnsupported
}

func (m *Multi) Close() error {
	var errs []error
	for _, a := range m.members {
		if c, ok := a.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
