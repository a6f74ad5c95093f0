package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/council/internal/domain/topic"
)

const serverInstructions = `council runs a permissioned governance workflow: Members → Topics → Voting sessions.

Roles:
- Authority: one fixed identity. Curates the member registry, denies topics, opens voting sessions.
- Member: a trusted identity. Proposes topics, votes, closes sessions after the deadline.
- Anyone else can only call whoami, is_member, get_topic and list_topics.

Workflow:
1) whoami to learn your identity and role.
2) create_topic proposes a topic. It starts IDLE.
3) The authority calls deny_topic (IDLE → DENIED) or create_session (IDLE → VOTING).
4) Participants call cast_vote once each before the deadline.
5) After the deadline any participant calls close_session. The result is frozen.
6) get_recent_activity shows every notification in order.

Errors are tool errors whose text starts with a code such as NOT_FOUND or DEADLINE_REACHED.

Docs:
- council://docs/concepts
- council://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "council://docs/concepts",
		Name:        "docs_concepts",
		Title:       "council concepts",
		Description: "Roles, topic states, session lifecycle and how the final result is computed.",
		Content:     conceptsDoc(),
	},
	{
		URI:         "council://docs/errors",
		Name:        "docs_errors",
		Title:       "council error codes",
		Description: "Tool error codes and what to do about them.",
		Content: `# council error codes

| Code | When |
|---|---|
| UNAUTHORIZED | caller lacks the required role |
| NOT_FOUND | topic or session id was never allocated |
| INVALID_STATE | topic is not IDLE, or session already closed |
| DEADLINE_IN_PAST | new session deadline is not in the future |
| DEADLINE_REACHED | vote cast at or after the deadline |
| DEADLINE_NOT_REACHED | close attempted before the deadline |
| INVALID_INPUT | malformed identity, subject, decision or pagination |
| ALREADY_VOTED | second vote by the same identity |
| INDEX_OUT_OF_BOUNDS | vote index is not below the vote count |
| NOT_THE_VOTER | reading a vote cast by someone else |
| INTERNAL | storage failure; retry later |
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

const conceptsTemplate = `# council concepts

## Identities

Identities are 0x-prefixed 20-byte hex addresses. The authority is fixed at
startup. Members are added and removed by the authority; registering an
existing member or removing a non-member is a no-op.

## Topics

A topic carries a subject, an objective, a description and a suggested value.
The subject is given by name or by numeric code:

%s

| Status | Meaning |
|---|---|
| IDLE | proposed, waiting for the authority |
| DENIED | rejected with a remark; final |
| VOTING | escalated into a voting session; final |

## Voting sessions

- Opened by the authority with a deadline strictly after the current time.
- Each participant votes once: POSITIVE, NEGATIVE, NEUTRAL or ABSTENTION.
- Votes are accepted while the current time is before the deadline.
- Once the deadline is reached any participant may close the session.
- The final result is the decision with the most votes. A tie for first
  place gives NEUTRAL. A session with no votes ends EMPTY.
- A vote can be read back only by the identity that cast it.

## Notifications

member.updated, topic.created, topic.closed, voting.session_created,
voting.vote_registered and voting.session_closed are recorded in the activity
log. Escalating a topic emits voting.session_created followed by topic.closed.
`

func conceptsDoc() string {
	var b strings.Builder
	b.WriteString("| Code | Subject |\n|---|---|\n")
	for _, subj := range topic.Subjects() {
		fmt.Fprintf(&b, "| %d | %s |\n", uint8(subj), subj)
	}
	return fmt.Sprintf(conceptsTemplate, b.String())
}
