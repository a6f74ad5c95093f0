package topic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Status string

const (
	StatusIdle   Status = "IDLE"
	StatusDenied Status = "DENIED"
	StatusVoting Status = "VOTING"
)

func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusDenied, StatusVoting:
		return true
	}
	return false
}

// Subject is the policy category a topic addresses.
type Subject uint8

const (
	SubjectInterestRate Subject = iota
	SubjectReserveRequirement
	SubjectOpenMarketOperations
	SubjectExchangeRate
	SubjectCapitalRequirement
)

var subjectNames = [...]string{
	SubjectInterestRate:         "INTEREST_RATE",
	SubjectReserveRequirement:   "RESERVE_REQUIREMENT",
	SubjectOpenMarketOperations: "OPEN_MARKET_OPERATIONS",
	SubjectExchangeRate:         "EXCHANGE_RATE",
	SubjectCapitalRequirement:   "CAPITAL_REQUIREMENT",
}

func (s Subject) Valid() bool {
	return int(s) < len(subjectNames)
}

func (s Subject) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Subject(%d)", uint8(s))
	}
	return subjectNames[s]
}

// ParseSubject accepts the name, case-insensitively, or the numeric code.
func ParseSubject(raw string) (Subject, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for i, n := range subjectNames {
		if n == name {
			return Subject(i), nil
		}
	}
	if code, err := strconv.ParseUint(name, 10, 8); err == nil && Subject(code).Valid() {
		return Subject(code), nil
	}
	return 0, fmt.Errorf("%w: unknown subject %q", ErrInvalidInput, raw)
}

// Subjects lists every subject in numeric order.
func Subjects() []Subject {
	out := make([]Subject, len(subjectNames))
	for i := range subjectNames {
		out[i] = Subject(i)
	}
	return out
}

// Topic is a policy proposal. It leaves IDLE exactly once.
type Topic struct {
	ID             uint64
	Proposer       common.Address
	Subject        Subject
	Objective      string
	Description    string
	SuggestedValue int64
	Status         Status
	DenialRemark   string
	VotingID       uint64
	CreatedAt      time.Time
	ClosedAt       *time.Time
}

// Deny moves an IDLE topic to DENIED.
func (t *Topic) Deny(remark string, at time.Time) error {
	if t.Status != StatusIdle {
		return fmt.Errorf("%w: topic %d is %s", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = StatusDenied
	t.DenialRemark = remark
	t.ClosedAt = &at
	return nil
}

// Escalate moves an IDLE topic to VOTING under the given session.
func (t *Topic) Escalate(votingID uint64, at time.Time) error {
	if t.Status != StatusIdle {
		return fmt.Errorf("%w: topic %d is %s", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = StatusVoting
	t.VotingID = votingID
	t.ClosedAt = &at
	return nil
}

type CreateRequest struct {
	Subject        Subject
	Objective      string
	Description    string
	SuggestedValue int64
}

type ListOptions struct {
	Status   *Status
	Proposer *common.Address
	Limit    int
	Offset   int
}
