// Package identity handles caller identities, which are 20-byte
// Ethereum-style addresses.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidIdentity is returned when a string is not a usable address.
var ErrInvalidIdentity = errors.New("invalid identity")

// Parse accepts a 0x-prefixed 40 hex digit address. The zero address is rejected.
func Parse(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q is missing the 0x prefix", ErrInvalidIdentity, raw)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a 20-byte hex address", ErrInvalidIdentity, raw)
	}
	addr := common.HexToAddress(s)
	if IsZero(addr) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidIdentity)
	}
	return addr, nil
}

// IsZero reports whether addr is the zero address.
func IsZero(addr common.Address) bool {
	return addr == (common.Address{})
}

type callerKey struct{}

// WithCaller returns a context carrying the authenticated caller.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	if !ok || IsZero(caller) {
		return common.Address{}, false
	}
	return caller, true
}
