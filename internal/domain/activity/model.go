package activity

import "time"

// ActivityType mirrors the event type that produced the entry.
type ActivityType string

const (
	TypeMemberUpdated  ActivityType = "member.updated"
	TypeTopicCreated   ActivityType = "topic.created"
	TypeTopicClosed    ActivityType = "topic.closed"
	TypeSessionCreated ActivityType = "voting.session_created"
	TypeVoteRegistered ActivityType = "voting.vote_registered"
	TypeSessionClosed  ActivityType = "voting.session_closed"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ActivityType ActivityType `json:"type"`
	Actor        string       `json:"actor,omitempty"`
	TopicID      *uint64      `json:"topic_id,omitempty"`
	VotingID     *uint64      `json:"voting_id,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
