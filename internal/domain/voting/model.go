package voting

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Decision is a voter's choice. DecisionEmpty is never a valid vote; it
// is the result of a session closed without votes.
type Decision uint8

const (
	DecisionEmpty Decision = iota
	DecisionPositive
	DecisionNegative
	DecisionNeutral
	DecisionAbstention
)

var decisionNames = [...]string{
	DecisionEmpty:      "EMPTY",
	DecisionPositive:   "POSITIVE",
	DecisionNegative:   "NEGATIVE",
	DecisionNeutral:    "NEUTRAL",
	DecisionAbstention: "ABSTENTION",
}

func (d Decision) String() string {
	if int(d) >= len(decisionNames) {
		return fmt.Sprintf("Decision(%d)", uint8(d))
	}
	return decisionNames[d]
}

// Valid reports whether d may be cast.
func (d Decision) Valid() bool {
	return d >= DecisionPositive && d <= DecisionAbstention
}

// ParseDecision accepts any decision name, EMPTY included, case-insensitively.
func ParseDecision(raw string) (Decision, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for i, n := range decisionNames {
		if n == name {
			return Decision(i), nil
		}
	}
	return DecisionEmpty, fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, raw)
}

// Session is a time-boxed vote on one escalated topic.
type Session struct {
	ID          uint64
	TopicID     uint64
	Proposer    common.Address
	Deadline    time.Time
	CreatedAt   time.Time
	Closed      bool
	ClosedAt    *time.Time
	FinalResult Decision
	Tally       Tally
	VoteCount   int
}

// Vote is one entry in a session's append-only log.
type Vote struct {
	VotingID                 uint64
	Index                    int
	Voter                    common.Address
	Decision                 Decision
	Description              string
	OpinativeValueSuggestion int64
	CastAt                   time.Time
}

type CreateSessionRequest struct {
	TopicID  uint64
	Deadline time.Time
}

type CastVoteRequest struct {
	VotingID                 uint64
	Decision                 Decision
	Description              string
	OpinativeValueSuggestion int64
}

type ListSessionsOptions struct {
	// Closed filters by closure when set.
	Closed *bool
	Limit  int
	Offset int
}
