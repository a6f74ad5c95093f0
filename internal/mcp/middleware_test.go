package mcp

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/council/internal/identity"
	"github.com/stretchr/testify/require"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")

type stubResolver map[string]common.Address

func (s stubResolver) ResolveIdentity(_ context.Context, token string) (common.Address, error) {
	addr, ok := s[token]
	if !ok {
		return common.Address{}, errors.New("unknown token")
	}
	return addr, nil
}

func captureCaller(seen *common.Address) sdkmcp.MethodHandler {
	return func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		*seen, _ = identity.CallerFromContext(ctx)
		return nil, nil
	}
}

func requestWithHeader(header http.Header) *sdkmcp.CallToolRequest {
	return &sdkmcp.CallToolRequest{
		Params: &sdkmcp.CallToolParamsRaw{Name: "whoami"},
		Extra:  &sdkmcp.RequestExtra{Header: header},
	}
}

func TestAuthMiddleware(t *testing.T) {
	mw := authMiddleware(stubResolver{"good": alice, "zero": {}})

	t.Run("valid token", func(t *testing.T) {
		var seen common.Address
		h := http.Header{}
		h.Set("Authorization", "Bearer good")
		_, err := mw(captureCaller(&seen))(context.Background(), "tools/call", requestWithHeader(h))
		require.NoError(t, err)
		require.Equal(t, alice, seen)
	})

	for name, header := range map[string]string{
		"missing token": "",
		"unknown token": "Bearer bad",
		"zero identity": "Bearer zero",
	} {
		t.Run(name, func(t *testing.T) {
			var seen common.Address
			h := http.Header{}
			if header != "" {
				h.Set("Authorization", header)
			}
			_, err := mw(captureCaller(&seen))(context.Background(), "tools/call", requestWithHeader(h))
			require.ErrorContains(t, err, "unauthorized")
			require.True(t, identity.IsZero(seen))
		})
	}

	t.Run("protocol methods skip auth", func(t *testing.T) {
		for _, method := range []string{"initialize", "ping", "notifications/initialized"} {
			var seen common.Address
			_, err := mw(captureCaller(&seen))(context.Background(), method, requestWithHeader(nil))
			require.NoError(t, err, method)
		}
	})
}

func TestFixedIdentityMiddleware(t *testing.T) {
	var seen common.Address
	_, err := fixedIdentityMiddleware(alice)(captureCaller(&seen))(context.Background(), "tools/call", requestWithHeader(nil))
	require.NoError(t, err)
	require.Equal(t, alice, seen)

	seen = common.Address{}
	_, err = fixedIdentityMiddleware(common.Address{})(captureCaller(&seen))(context.Background(), "tools/call", requestWithHeader(nil))
	require.NoError(t, err)
	require.True(t, identity.IsZero(seen))
}
