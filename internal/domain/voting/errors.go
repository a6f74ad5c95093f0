package voting

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a voting id was never allocated
	ErrSessionNotFound = errors.New("voting session not found")

	// ErrInvalidState is returned when a session cannot take the requested action
	ErrInvalidState = errors.New("invalid session state")

	// ErrSessionClosed is returned when closing a session twice
	ErrSessionClosed = fmt.Errorf("%w: session already closed", ErrInvalidState)

	// ErrDeadlineInPast is returned when a new session's deadline is not in the future
	ErrDeadlineInPast = errors.New("deadline is not in the future")

	// ErrDeadlineReached is returned when voting after the deadline
	ErrDeadlineReached = errors.New("voting deadline reached")

	// ErrDeadlineNotReached is returned when closing before the deadline
	ErrDeadlineNotReached = errors.New("voting deadline not reached")

	// ErrInvalidInput is returned for an EMPTY or unknown decision
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyVoted is returned on a second vote by the same identity
	ErrAlreadyVoted = errors.New("already voted")

	// ErrIndexOutOfBounds is returned when reading past the vote log
	ErrIndexOutOfBounds = errors.New("vote index out of bounds")

	// ErrNotTheVoter is returned when reading someone else's vote
	ErrNotTheVoter = errors.New("caller is not the voter")
)
