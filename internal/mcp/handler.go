package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/identity"
)

// Handler translates tool arguments into domain calls.
type Handler struct {
	members  MemberService
	topics   TopicService
	voting   VotingService
	activity ActivityService
	clock    clock.Clock
}

// NewHandler creates a new MCP handler.
func NewHandler(svcs Services, clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.System()
	}
	return &Handler{
		members:  svcs.Members,
		topics:   svcs.Topics,
		voting:   svcs.Voting,
		activity: svcs.Activity,
		clock:    clk,
	}
}

func (h *Handler) WhoAmI(ctx context.Context, caller common.Address, _ EmptyParams) (WhoAmIResponse, error) {
	role, err := h.members.Role(ctx, caller)
	if err != nil {
		return WhoAmIResponse{}, err
	}
	return WhoAmIResponse{
		Identity:  caller.Hex(),
		Role:      role.String(),
		Authority: h.members.Authority().Hex(),
	}, nil
}

func (h *Handler) RegisterMember(ctx context.Context, caller common.Address, p MemberParams) (MembershipResponse, error) {
	addr, err := identity.Parse(p.Identity)
	if err != nil {
		return MembershipResponse{}, err
	}
	if err := h.members.Register(ctx, caller, addr); err != nil {
		return MembershipResponse{}, err
	}
	return MembershipResponse{Identity: addr.Hex(), IsMember: true}, nil
}

func (h *Handler) DeregisterMember(ctx context.Context, caller common.Address, p MemberParams) (MembershipResponse, error) {
	addr, err := identity.Parse(p.Identity)
	if err != nil {
		return MembershipResponse{}, err
	}
	if err := h.members.Deregister(ctx, caller, addr); err != nil {
		return MembershipResponse{}, err
	}
	return MembershipResponse{Identity: addr.Hex(), IsMember: false}, nil
}

func (h *Handler) IsMember(ctx context.Context, _ common.Address, p MemberParams) (MembershipResponse, error) {
	addr, err := identity.Parse(p.Identity)
	if err != nil {
		return MembershipResponse{}, err
	}
	ok, err := h.members.IsMember(ctx, addr)
	if err != nil {
		return MembershipResponse{}, err
	}
	return MembershipResponse{Identity: addr.Hex(), IsMember: ok}, nil
}

func (h *Handler) ListMembers(ctx context.Context, caller common.Address, _ EmptyParams) (MemberListResponse, error) {
	members, err := h.members.List(ctx, caller)
	if err != nil {
		return MemberListResponse{}, err
	}
	resp := MemberListResponse{Members: make([]MemberResponse, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, memberResponse(m))
	}
	return resp, nil
}

func (h *Handler) CreateTopic(ctx context.Context, caller common.Address, p CreateTopicParams) (TopicResponse, error) {
	subject, err := topic.ParseSubject(p.Subject)
	if err != nil {
		return TopicResponse{}, err
	}
	t, err := h.topics.Create(ctx, caller, topic.CreateRequest{
		Subject:        subject,
		Objective:      p.Objective,
		Description:    p.Description,
		SuggestedValue: p.SuggestedValue,
	})
	if err != nil {
		return TopicResponse{}, err
	}
	return topicResponse(t), nil
}

func (h *Handler) DenyTopic(ctx context.Context, caller common.Address, p DenyTopicParams) (TopicResponse, error) {
	t, err := h.topics.Deny(ctx, caller, p.TopicID, p.Remark)
	if err != nil {
		return TopicResponse{}, err
	}
	return topicResponse(t), nil
}

func (h *Handler) GetTopic(ctx context.Context, _ common.Address, p GetTopicParams) (TopicResponse, error) {
	t, err := h.topics.Get(ctx, p.TopicID)
	if err != nil {
		return TopicResponse{}, err
	}
	return topicResponse(t), nil
}

func (h *Handler) ListTopics(ctx context.Context, _ common.Address, p ListTopicsParams) (TopicListResponse, error) {
	opts := topic.ListOptions{Limit: p.Limit, Offset: p.Offset}
	if p.Status != "" {
		status := topic.Status(strings.ToUpper(strings.TrimSpace(p.Status)))
		opts.Status = &status
	}
	if p.Proposer != "" {
		proposer, err := identity.Parse(p.Proposer)
		if err != nil {
			return TopicListResponse{}, err
		}
		opts.Proposer = &proposer
	}
	topics, err := h.topics.List(ctx, opts)
	if err != nil {
		return TopicListResponse{}, err
	}
	resp := TopicListResponse{Topics: make([]TopicResponse, 0, len(topics))}
	for i := range topics {
		resp.Topics = append(resp.Topics, topicResponse(&topics[i]))
	}
	return resp, nil
}

func (h *Handler) CreateSession(ctx context.Context, caller common.Address, p CreateSessionParams) (SessionResponse, error) {
	deadline, err := h.parseDeadline(p.Deadline, p.Duration)
	if err != nil {
		return SessionResponse{}, err
	}
	s, err := h.voting.CreateSession(ctx, caller, voting.CreateSessionRequest{
		TopicID:  p.TopicID,
		Deadline: deadline,
	})
	if err != nil {
		return SessionResponse{}, err
	}
	return sessionResponse(s), nil
}

// parseDeadline prefers an absolute deadline over a duration from now.
func (h *Handler) parseDeadline(deadline, duration string) (time.Time, error) {
	switch {
	case deadline != "":
		t, err := time.Parse(time.RFC3339, deadline)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: deadline: %v", errInvalidParams, err)
		}
		return t.UTC(), nil
	case duration != "":
		d, err := time.ParseDuration(duration)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: duration: %v", errInvalidParams, err)
		}
		return h.clock.Now().Add(d), nil
	default:
		return time.Time{}, fmt.Errorf("%w: deadline or duration is required", errInvalidParams)
	}
}

func (h *Handler) CastVote(ctx context.Context, caller common.Address, p CastVoteParams) (VoteResponse, error) {
	decision, err := voting.ParseDecision(p.Decision)
	if err != nil {
		return VoteResponse{}, err
	}
	v, err := h.voting.CastVote(ctx, caller, voting.CastVoteRequest{
		VotingID:                 p.VotingID,
		Decision:                 decision,
		Description:              p.Description,
		OpinativeValueSuggestion: p.OpinativeValueSuggestion,
	})
	if err != nil {
		return VoteResponse{}, err
	}
	return voteResponse(v), nil
}

func (h *Handler) GetVoteCount(ctx context.Context, caller common.Address, p VotingIDParams) (VoteCountResponse, error) {
	n, err := h.voting.VoteCount(ctx, caller, p.VotingID)
	if err != nil {
		return VoteCountResponse{}, err
	}
	return VoteCountResponse{VotingID: p.VotingID, Count: n}, nil
}

func (h *Handler) GetVote(ctx context.Context, caller common.Address, p GetVoteParams) (VoteResponse, error) {
	v, err := h.voting.GetVote(ctx, caller, p.VotingID, p.Index)
	if err != nil {
		return VoteResponse{}, err
	}
	return voteResponse(v), nil
}

func (h *Handler) CloseSession(ctx context.Context, caller common.Address, p VotingIDParams) (SessionResponse, error) {
	s, err := h.voting.CloseSession(ctx, caller, p.VotingID)
	if err != nil {
		return SessionResponse{}, err
	}
	return sessionResponse(s), nil
}

func (h *Handler) GetSession(ctx context.Context, caller common.Address, p VotingIDParams) (SessionResponse, error) {
	s, err := h.voting.GetSession(ctx, caller, p.VotingID)
	if err != nil {
		return SessionResponse{}, err
	}
	return sessionResponse(s), nil
}

func (h *Handler) ListSessions(ctx context.Context, caller common.Address, p ListSessionsParams) (SessionListResponse, error) {
	opts := voting.ListSessionsOptions{Limit: p.Limit, Offset: p.Offset}
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "":
	case "open":
		closed := false
		opts.Closed = &closed
	case "closed":
		closed := true
		opts.Closed = &closed
	default:
		return SessionListResponse{}, fmt.Errorf("%w: unknown status %q", errInvalidParams, p.Status)
	}

	sessions, err := h.voting.ListSessions(ctx, caller, opts)
	if err != nil {
		return SessionListResponse{}, err
	}
	current, err := h.voting.CurrentVotingID(ctx)
	if err != nil {
		return SessionListResponse{}, err
	}
	resp := SessionListResponse{
		Sessions:        make([]SessionResponse, 0, len(sessions)),
		CurrentVotingID: current,
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, sessionResponse(&sessions[i]))
	}
	return resp, nil
}

func (h *Handler) GetRecentActivity(ctx context.Context, caller common.Address, p GetRecentActivityParams) (ActivityListResponse, error) {
	opts := activity.ListActivityOptions{
		TopicID:  p.TopicID,
		VotingID: p.VotingID,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
	if p.Type != "" {
		t := activity.ActivityType(p.Type)
		opts.ActivityType = &t
	}
	entries, err := h.activity.GetRecentActivity(ctx, caller, opts)
	if err != nil {
		return ActivityListResponse{}, err
	}
	resp := ActivityListResponse{Entries: make([]ActivityResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, activityResponse(e))
	}
	return resp, nil
}
