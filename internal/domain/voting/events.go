package voting

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/event"
)

const (
	EventTypeSessionCreated event.EventType = "voting.session_created"
	EventTypeVoteRegistered event.EventType = "voting.vote_registered"
	EventTypeSessionClosed  event.EventType = "voting.session_closed"
)

type SessionCreatedEvent struct {
	Proposer  common.Address
	TopicID   uint64
	VotingID  uint64
	Timestamp time.Time
}

// VoteRegisteredEvent omits the voter and decision.
type VoteRegisteredEvent struct {
	VotingID  uint64
	Index     int
	Timestamp time.Time
}

type SessionClosedEvent struct {
	VotingID    uint64
	FinalResult Decision
	Timestamp   time.Time
}
