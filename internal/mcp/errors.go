package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/identity"
)

// errInvalidParams is returned for tool arguments the handler cannot parse.
var errInvalidParams = errors.New("invalid parameters")

// APIError is the payload of a failed tool call.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to stable tool error codes. It returns nil
// for errors that have no code, which callers report as INTERNAL.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: msg, RecoveryHint: "Call whoami to check your role"}
	case errors.Is(err, topic.ErrTopicNotFound), errors.Is(err, voting.ErrSessionNotFound):
		return &APIError{Code: "NOT_FOUND", Message: msg, RecoveryHint: "Check the id with list_topics or list_sessions"}
	case errors.Is(err, topic.ErrInvalidState), errors.Is(err, voting.ErrInvalidState):
		return &APIError{Code: "INVALID_STATE", Message: msg}
	case errors.Is(err, voting.ErrDeadlineInPast):
		return &APIError{Code: "DEADLINE_IN_PAST", Message: msg, RecoveryHint: "Pick a deadline after the current time"}
	case errors.Is(err, voting.ErrDeadlineReached):
		return &APIError{Code: "DEADLINE_REACHED", Message: msg, RecoveryHint: "The session can now be closed"}
	case errors.Is(err, voting.ErrDeadlineNotReached):
		return &APIError{Code: "DEADLINE_NOT_REACHED", Message: msg, RecoveryHint: "Wait for the deadline before closing"}
	case errors.Is(err, voting.ErrAlreadyVoted):
		return &APIError{Code: "ALREADY_VOTED", Message: msg}
	case errors.Is(err, voting.ErrIndexOutOfBounds):
		return &APIError{Code: "INDEX_OUT_OF_BOUNDS", Message: msg, RecoveryHint: "Call get_vote_count first"}
	case errors.Is(err, voting.ErrNotTheVoter):
		return &APIError{Code: "NOT_THE_VOTER", Message: msg, RecoveryHint: "Only your own vote can be read"}
	case errors.Is(err, voting.ErrInvalidInput),
		errors.Is(err, topic.ErrInvalidInput),
		errors.Is(err, member.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidIdentity),
		errors.Is(err, errInvalidParams):
		return &APIError{Code: "INVALID_INPUT", Message: msg}
	default:
		return nil
	}
}

func internalError() *APIError {
	return &APIError{Code: "INTERNAL", Message: "internal error"}
}
