package member

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Repository persists registry membership.
type Repository interface {
	// SetTrusted upserts m and reports whether the trusted flag changed.
	SetTrusted(ctx context.Context, m *Member) (bool, error)
	IsTrusted(ctx context.Context, addr common.Address) (bool, error)
	// List returns trusted members ordered by address.
	List(ctx context.Context) ([]Member, error)
}
