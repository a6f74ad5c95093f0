package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/council/internal/mcp"
	"github.com/rpggio/council/internal/testserver"
	"github.com/stretchr/testify/require"
)

var (
	authority = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	eve       = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	start     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])
	return text.Text
}

func callOK[T any](t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	res := callTool(t, cs, name, args)
	require.False(t, res.IsError, "%s failed: %s", name, resultText(t, res))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func requireToolError(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any, code string) {
	t.Helper()
	res := callTool(t, cs, name, args)
	require.True(t, res.IsError, "%s unexpectedly succeeded", name)
	text := resultText(t, res)
	require.True(t, strings.HasPrefix(text, code+":"), "expected %s, got %q", code, text)
}

func TestGovernanceWorkflow(t *testing.T) {
	ts := testserver.New(t, authority, start)
	auth := ts.Connect(t, authority)
	a := ts.Connect(t, alice)
	b := ts.Connect(t, bob)
	outsider := ts.Connect(t, eve)

	who := callOK[mcp.WhoAmIResponse](t, auth, "whoami", nil)
	require.Equal(t, "authority", who.Role)
	require.Equal(t, authority.Hex(), who.Authority)

	for _, m := range []common.Address{alice, bob} {
		resp := callOK[mcp.MembershipResponse](t, auth, "register_member", map[string]any{"identity": m.Hex()})
		require.True(t, resp.IsMember)
	}
	requireToolError(t, a, "register_member", map[string]any{"identity": eve.Hex()}, "UNAUTHORIZED")
	requireToolError(t, auth, "register_member", map[string]any{"identity": "not-an-address"}, "INVALID_INPUT")

	who = callOK[mcp.WhoAmIResponse](t, a, "whoami", nil)
	require.Equal(t, "member", who.Role)
	require.True(t, callOK[mcp.MembershipResponse](t, outsider, "is_member", map[string]any{"identity": bob.Hex()}).IsMember)
	requireToolError(t, outsider, "list_members", nil, "UNAUTHORIZED")
	require.Len(t, callOK[mcp.MemberListResponse](t, a, "list_members", nil).Members, 2)

	// Topics
	requireToolError(t, outsider, "create_topic", map[string]any{
		"subject": "INTEREST_RATE", "objective": "o", "description": "d",
	}, "UNAUTHORIZED")
	requireToolError(t, a, "create_topic", map[string]any{
		"subject": "GOLD_STANDARD", "objective": "o", "description": "d",
	}, "INVALID_INPUT")

	tp := callOK[mcp.TopicResponse](t, a, "create_topic", map[string]any{
		"subject":         "INTEREST_RATE",
		"objective":       "cut the policy rate",
		"description":     "inflation is below target",
		"suggested_value": 1050,
	})
	require.Equal(t, uint64(1), tp.ID)
	require.Equal(t, "IDLE", tp.Status)
	require.Equal(t, alice.Hex(), tp.Proposer)

	denied := callOK[mcp.TopicResponse](t, b, "create_topic", map[string]any{
		"subject": "3", "objective": "peg", "description": "d",
	})
	require.Equal(t, "EXCHANGE_RATE", denied.Subject)
	requireToolError(t, a, "deny_topic", map[string]any{"topic_id": denied.ID, "remark": "no"}, "UNAUTHORIZED")
	denied = callOK[mcp.TopicResponse](t, auth, "deny_topic", map[string]any{"topic_id": denied.ID, "remark": "out of mandate"})
	require.Equal(t, "DENIED", denied.Status)
	require.Equal(t, "out of mandate", denied.DenialRemark)
	requireToolError(t, auth, "deny_topic", map[string]any{"topic_id": denied.ID}, "INVALID_STATE")
	requireToolError(t, auth, "deny_topic", map[string]any{"topic_id": 99}, "NOT_FOUND")

	// Outsiders can still read topics.
	listed := callOK[mcp.TopicListResponse](t, outsider, "list_topics", map[string]any{"status": "IDLE"})
	require.Len(t, listed.Topics, 1)
	require.Equal(t, tp.ID, listed.Topics[0].ID)

	// Voting
	requireToolError(t, auth, "create_session", map[string]any{
		"topic_id": tp.ID, "deadline": start.Add(-time.Minute).Format(time.RFC3339),
	}, "DEADLINE_IN_PAST")
	requireToolError(t, auth, "create_session", map[string]any{"topic_id": tp.ID}, "INVALID_INPUT")

	sess := callOK[mcp.SessionResponse](t, auth, "create_session", map[string]any{"topic_id": tp.ID, "duration": "1h"})
	require.Equal(t, uint64(1), sess.ID)
	require.Equal(t, start.Add(time.Hour).Format(time.RFC3339), sess.Deadline)
	require.Equal(t, "EMPTY", sess.FinalResult)
	require.Nil(t, sess.Tally)
	require.Equal(t, "VOTING", callOK[mcp.TopicResponse](t, outsider, "get_topic", map[string]any{"topic_id": tp.ID}).Status)
	requireToolError(t, auth, "create_session", map[string]any{"topic_id": tp.ID, "duration": "1h"}, "INVALID_STATE")

	vote := callOK[mcp.VoteResponse](t, a, "cast_vote", map[string]any{
		"voting_id": sess.ID, "decision": "POSITIVE", "description": "yes", "opinative_value_suggestion": 1000,
	})
	require.Equal(t, 0, vote.Index)
	callOK[mcp.VoteResponse](t, b, "cast_vote", map[string]any{"voting_id": sess.ID, "decision": "positive"})
	callOK[mcp.VoteResponse](t, auth, "cast_vote", map[string]any{"voting_id": sess.ID, "decision": "NEGATIVE"})
	requireToolError(t, a, "cast_vote", map[string]any{"voting_id": sess.ID, "decision": "NEGATIVE"}, "ALREADY_VOTED")
	requireToolError(t, a, "cast_vote", map[string]any{"voting_id": sess.ID, "decision": "EMPTY"}, "INVALID_INPUT")
	requireToolError(t, outsider, "cast_vote", map[string]any{"voting_id": sess.ID, "decision": "POSITIVE"}, "UNAUTHORIZED")
	requireToolError(t, a, "cast_vote", map[string]any{"voting_id": 42, "decision": "POSITIVE"}, "NOT_FOUND")

	count := callOK[mcp.VoteCountResponse](t, b, "get_vote_count", map[string]any{"voting_id": sess.ID})
	require.Equal(t, 3, count.Count)
	requireToolError(t, outsider, "get_vote_count", map[string]any{"voting_id": sess.ID}, "UNAUTHORIZED")
	requireToolError(t, b, "get_vote_count", map[string]any{"voting_id": 42}, "NOT_FOUND")

	own := callOK[mcp.VoteResponse](t, a, "get_vote", map[string]any{"voting_id": sess.ID, "index": 0})
	require.Equal(t, "POSITIVE", own.Decision)
	require.Equal(t, int64(1000), own.OpinativeValueSuggestion)
	requireToolError(t, b, "get_vote", map[string]any{"voting_id": sess.ID, "index": 0}, "NOT_THE_VOTER")
	requireToolError(t, a, "get_vote", map[string]any{"voting_id": sess.ID, "index": 3}, "INDEX_OUT_OF_BOUNDS")

	requireToolError(t, b, "close_session", map[string]any{"voting_id": sess.ID}, "DEADLINE_NOT_REACHED")

	ts.Clock.Advance(time.Hour)
	requireToolError(t, b, "cast_vote", map[string]any{"voting_id": sess.ID, "decision": "NEUTRAL"}, "DEADLINE_REACHED")

	closed := callOK[mcp.SessionResponse](t, b, "close_session", map[string]any{"voting_id": sess.ID})
	require.True(t, closed.Closed)
	require.Equal(t, "POSITIVE", closed.FinalResult)
	require.NotNil(t, closed.Tally)
	require.Equal(t, mcp.TallyResponse{Positive: 2, Negative: 1}, *closed.Tally)
	requireToolError(t, a, "close_session", map[string]any{"voting_id": sess.ID}, "INVALID_STATE")

	sessions := callOK[mcp.SessionListResponse](t, a, "list_sessions", map[string]any{"status": "closed"})
	require.Len(t, sessions.Sessions, 1)
	require.Equal(t, uint64(1), sessions.CurrentVotingID)
	require.Empty(t, callOK[mcp.SessionListResponse](t, a, "list_sessions", map[string]any{"status": "open"}).Sessions)
	requireToolError(t, a, "list_sessions", map[string]any{"status": "pending"}, "INVALID_INPUT")

	// Activity
	requireToolError(t, outsider, "get_recent_activity", nil, "UNAUTHORIZED")
	recent := callOK[mcp.ActivityListResponse](t, a, "get_recent_activity", map[string]any{"limit": 6})
	types := make([]string, 0, len(recent.Entries))
	for _, e := range recent.Entries {
		types = append(types, e.Type)
	}
	require.Equal(t, []string{
		"voting.session_closed",
		"voting.vote_registered",
		"voting.vote_registered",
		"voting.vote_registered",
		"topic.closed",
		"voting.session_created",
	}, types)
}

func TestHTTPBearerAuth(t *testing.T) {
	ts := testserver.New(t, authority, start)
	require.NoError(t, ts.AddAPIKey("alice-token", alice))

	cs, err := ts.ConnectHTTP(t, "alice-token")
	require.NoError(t, err)
	who := callOK[mcp.WhoAmIResponse](t, cs, "whoami", nil)
	require.Equal(t, alice.Hex(), who.Identity)
	require.Equal(t, "none", who.Role)

	_, err = ts.ConnectHTTP(t, "wrong-token")
	require.Error(t, err)
}

func TestToolCatalog(t *testing.T) {
	ts := testserver.New(t, authority, start)
	cs := ts.Connect(t, authority)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"whoami", "register_member", "deregister_member", "is_member", "list_members",
		"create_topic", "deny_topic", "get_topic", "list_topics",
		"create_session", "cast_vote", "get_vote_count", "get_vote", "close_session",
		"get_session", "list_sessions", "get_recent_activity",
	}, names)

	resources, err := cs.ListResources(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, resources.Resources, 2)
}
