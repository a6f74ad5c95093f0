package mcp

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/identity"
)

// addTool registers a typed tool that runs as the caller resolved by the
// identity middleware. Domain errors become tool errors with a stable code.
func addTool[In, Out any](server *sdkmcp.Server, logger *slog.Logger, name, description string, fn func(context.Context, common.Address, In) (Out, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		var zero Out
		caller, ok := identity.CallerFromContext(ctx)
		if !ok {
			return nil, zero, MapError(access.ErrUnauthorized)
		}
		out, err := fn(ctx, caller, in)
		if err != nil {
			if apiErr := MapError(err); apiErr != nil {
				return nil, zero, apiErr
			}
			logger.Error("tool failed", "tool", name, "caller", caller.Hex(), "error", err)
			return nil, zero, internalError()
		}
		return nil, out, nil
	})
}

func registerTools(server *sdkmcp.Server, h *Handler, logger *slog.Logger) {
	// Identity
	addTool(server, logger, "whoami",
		"Show the calling identity, its role (none, member, authority) and the authority address",
		h.WhoAmI)

	// Member registry
	addTool(server, logger, "register_member",
		"Add an identity to the trusted member registry (authority only, idempotent)",
		h.RegisterMember)
	addTool(server, logger, "deregister_member",
		"Remove an identity from the trusted member registry (authority only, idempotent)",
		h.DeregisterMember)
	addTool(server, logger, "is_member",
		"Report whether an identity is a trusted member",
		h.IsMember)
	addTool(server, logger, "list_members",
		"List trusted members (members and authority only)",
		h.ListMembers)

	// Topics
	addTool(server, logger, "create_topic",
		"Propose a policy topic; it starts IDLE until the authority denies or escalates it",
		h.CreateTopic)
	addTool(server, logger, "deny_topic",
		"Deny an IDLE topic with a remark (authority only)",
		h.DenyTopic)
	addTool(server, logger, "get_topic",
		"Get a topic by id",
		h.GetTopic)
	addTool(server, logger, "list_topics",
		"List topics, optionally filtered by status or proposer",
		h.ListTopics)

	// Voting
	addTool(server, logger, "create_session",
		"Escalate an IDLE topic into a voting session with a future deadline (authority only)",
		h.CreateSession)
	addTool(server, logger, "cast_vote",
		"Cast your single vote in an open session before its deadline",
		h.CastVote)
	addTool(server, logger, "get_vote_count",
		"Number of votes cast in a session",
		h.GetVoteCount)
	addTool(server, logger, "get_vote",
		"Read a vote by index; only the voter may read it",
		h.GetVote)
	addTool(server, logger, "close_session",
		"Close a session after its deadline and freeze the final result",
		h.CloseSession)
	addTool(server, logger, "get_session",
		"Get a voting session by id",
		h.GetSession)
	addTool(server, logger, "list_sessions",
		"List voting sessions, optionally only open or closed ones",
		h.ListSessions)

	// Activity
	addTool(server, logger, "get_recent_activity",
		"Recent governance notifications, newest first",
		h.GetRecentActivity)
}
