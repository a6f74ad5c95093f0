package mcp

import (
	"time"

	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
)

type EmptyParams struct{}

type MemberParams struct {
	Identity string `json:"identity" jsonschema:"0x-prefixed 20-byte hex address"`
}

type CreateTopicParams struct {
	Subject        string `json:"subject" jsonschema:"subject name or numeric code; see council://docs/concepts"`
	Objective      string `json:"objective"`
	Description    string `json:"description"`
	SuggestedValue int64  `json:"suggested_value,omitempty"`
}

type DenyTopicParams struct {
	TopicID uint64 `json:"topic_id"`
	Remark  string `json:"remark,omitempty"`
}

type GetTopicParams struct {
	TopicID uint64 `json:"topic_id"`
}

type ListTopicsParams struct {
	Status   string `json:"status,omitempty" jsonschema:"IDLE, DENIED or VOTING"`
	Proposer string `json:"proposer,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type CreateSessionParams struct {
	TopicID  uint64 `json:"topic_id"`
	Deadline string `json:"deadline,omitempty" jsonschema:"RFC 3339 timestamp"`
	Duration string `json:"duration,omitempty" jsonschema:"Go duration from now such as 72h; used when deadline is empty"`
}

type CastVoteParams struct {
	VotingID                 uint64 `json:"voting_id"`
	Decision                 string `json:"decision" jsonschema:"POSITIVE, NEGATIVE, NEUTRAL or ABSTENTION"`
	Description              string `json:"description,omitempty"`
	OpinativeValueSuggestion int64  `json:"opinative_value_suggestion,omitempty"`
}

type VotingIDParams struct {
	VotingID uint64 `json:"voting_id"`
}

type GetVoteParams struct {
	VotingID uint64 `json:"voting_id"`
	Index    int    `json:"index"`
}

type ListSessionsParams struct {
	Status string `json:"status,omitempty" jsonschema:"open or closed"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type GetRecentActivityParams struct {
	Type     string  `json:"type,omitempty"`
	TopicID  *uint64 `json:"topic_id,omitempty"`
	VotingID *uint64 `json:"voting_id,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
}

type WhoAmIResponse struct {
	Identity  string `json:"identity"`
	Role      string `json:"role"`
	Authority string `json:"authority"`
}

type MembershipResponse struct {
	Identity string `json:"identity"`
	IsMember bool   `json:"is_member"`
}

type MemberResponse struct {
	Identity  string `json:"identity"`
	UpdatedAt string `json:"updated_at"`
}

func memberResponse(m member.Member) MemberResponse {
	return MemberResponse{
		Identity:  m.Address.Hex(),
		UpdatedAt: formatTime(m.UpdatedAt),
	}
}

type MemberListResponse struct {
	Members []MemberResponse `json:"members"`
}

type TopicResponse struct {
	ID             uint64 `json:"id"`
	Proposer       string `json:"proposer"`
	Subject        string `json:"subject"`
	Objective      string `json:"objective"`
	Description    string `json:"description"`
	SuggestedValue int64  `json:"suggested_value"`
	Status         string `json:"status"`
	DenialRemark   string `json:"denial_remark,omitempty"`
	VotingID       uint64 `json:"voting_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	ClosedAt       string `json:"closed_at,omitempty"`
}

func topicResponse(t *topic.Topic) TopicResponse {
	return TopicResponse{
		ID:             t.ID,
		Proposer:       t.Proposer.Hex(),
		Subject:        t.Subject.String(),
		Objective:      t.Objective,
		Description:    t.Description,
		SuggestedValue: t.SuggestedValue,
		Status:         string(t.Status),
		DenialRemark:   t.DenialRemark,
		VotingID:       t.VotingID,
		CreatedAt:      formatTime(t.CreatedAt),
		ClosedAt:       formatTimePtr(t.ClosedAt),
	}
}

type TopicListResponse struct {
	Topics []TopicResponse `json:"topics"`
}

type TallyResponse struct {
	Positive   int `json:"positive"`
	Negative   int `json:"negative"`
	Neutral    int `json:"neutral"`
	Abstention int `json:"abstention"`
}

type SessionResponse struct {
	ID          uint64         `json:"id"`
	TopicID     uint64         `json:"topic_id"`
	Proposer    string         `json:"proposer"`
	Deadline    string         `json:"deadline"`
	CreatedAt   string         `json:"created_at"`
	Closed      bool           `json:"closed"`
	ClosedAt    string         `json:"closed_at,omitempty"`
	FinalResult string         `json:"final_result"`
	Tally       *TallyResponse `json:"tally,omitempty"`
	VoteCount   int            `json:"vote_count"`
}

// sessionResponse only reports the tally once the session is closed.
func sessionResponse(s *voting.Session) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID,
		TopicID:     s.TopicID,
		Proposer:    s.Proposer.Hex(),
		Deadline:    formatTime(s.Deadline),
		CreatedAt:   formatTime(s.CreatedAt),
		Closed:      s.Closed,
		ClosedAt:    formatTimePtr(s.ClosedAt),
		FinalResult: s.FinalResult.String(),
		VoteCount:   s.VoteCount,
	}
	if s.Closed {
		resp.Tally = &TallyResponse{
			Positive:   s.Tally.Positive,
			Negative:   s.Tally.Negative,
			Neutral:    s.Tally.Neutral,
			Abstention: s.Tally.Abstention,
		}
	}
	return resp
}

type SessionListResponse struct {
	Sessions        []SessionResponse `json:"sessions"`
	CurrentVotingID uint64            `json:"current_voting_id"`
}

type VoteResponse struct {
	VotingID                 uint64 `json:"voting_id"`
	Index                    int    `json:"index"`
	Voter                    string `json:"voter"`
	Decision                 string `json:"decision"`
	Description              string `json:"description,omitempty"`
	OpinativeValueSuggestion int64  `json:"opinative_value_suggestion"`
	CastAt                   string `json:"cast_at"`
}

func voteResponse(v *voting.Vote) VoteResponse {
	return VoteResponse{
		VotingID:                 v.VotingID,
		Index:                    v.Index,
		Voter:                    v.Voter.Hex(),
		Decision:                 v.Decision.String(),
		Description:              v.Description,
		OpinativeValueSuggestion: v.OpinativeValueSuggestion,
		CastAt:                   formatTime(v.CastAt),
	}
}

type VoteCountResponse struct {
	VotingID uint64 `json:"voting_id"`
	Count    int    `json:"count"`
}

type ActivityResponse struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Actor     string  `json:"actor,omitempty"`
	TopicID   *uint64 `json:"topic_id,omitempty"`
	VotingID  *uint64 `json:"voting_id,omitempty"`
	Summary   string  `json:"summary"`
	Details   string  `json:"details,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func activityResponse(e activity.ActivityEntry) ActivityResponse {
	return ActivityResponse{
		ID:        e.ID,
		Type:      string(e.ActivityType),
		Actor:     e.Actor,
		TopicID:   e.TopicID,
		VotingID:  e.VotingID,
		Summary:   e.Summary,
		Details:   e.Details,
		CreatedAt: formatTime(e.CreatedAt),
	}
}

type ActivityListResponse struct {
	Entries []ActivityResponse `json:"entries"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
