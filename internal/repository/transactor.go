package repository

import "context"

// Transactor runs fn as one atomic unit. Repository calls made with the
// context passed to fn join the transaction; any error rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly. Used by tests that back services with mocks.
type NoTx struct{}

func (NoTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
