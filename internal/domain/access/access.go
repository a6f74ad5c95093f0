// Package access decides what a caller may do. The authority is fixed at
// startup; members come from the registry.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnauthorized is returned when the caller lacks the required role.
var ErrUnauthorized = errors.New("unauthorized")

type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleAuthority
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAuthority:
		return "authority"
	default:
		return "none"
	}
}

// MemberLookup reports registry membership.
type MemberLookup interface {
	IsTrusted(ctx context.Context, addr common.Address) (bool, error)
}

type Guard struct {
	authority common.Address
	members   MemberLookup
}

func NewGuard(authority common.Address, members MemberLookup) *Guard {
	return &Guard{authority: authority, members: members}
}

func (g *Guard) Authority() common.Address {
	return g.authority
}

// Role resolves the caller's role. The authority is never looked up in the
// registry, so it keeps its role whether or not it is also registered.
func (g *Guard) Role(ctx context.Context, caller common.Address) (Role, error) {
	if caller == g.authority {
		return RoleAuthority, nil
	}
	trusted, err := g.members.IsTrusted(ctx, caller)
	if err != nil {
		return RoleNone, fmt.Errorf("checking membership: %w", err)
	}
	if trusted {
		return RoleMember, nil
	}
	return RoleNone, nil
}

func (g *Guard) RequireAuthority(caller common.Address) error {
	if caller != g.authority {
		return fmt.Errorf("%w: %s is not the authority", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// RequireParticipant admits the authority and trusted members.
func (g *Guard) RequireParticipant(ctx context.Context, caller common.Address) error {
	role, err := g.Role(ctx, caller)
	if err != nil {
		return err
	}
	if role == RoleNone {
		return fmt.Errorf("%w: %s is not a member", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// DeadlineReached reports whether now is at or past deadline.
func DeadlineReached(now, deadline time.Time) bool {
	return !now.Before(deadline)
}

// DeadlineInFuture reports whether deadline is strictly after now.
func DeadlineInFuture(now, deadline time.Time) bool {
	return deadline.After(now)
}
