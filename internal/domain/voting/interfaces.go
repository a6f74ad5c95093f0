package voting

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/domain/topic"
)

// TopicRepository is the slice of topic storage the engine needs.
type TopicRepository interface {
	Get(ctx context.Context, id uint64) (*topic.Topic, error)
	Update(ctx context.Context, t *topic.Topic) error
}

// SessionRepository persists sessions and their vote logs.
type SessionRepository interface {
	// Create allocates the next voting id, assigns it to s and stores s.
	Create(ctx context.Context, s *Session) error
	// Get fills VoteCount from the vote log.
	Get(ctx context.Context, id uint64) (*Session, error)
	// Close persists closure, result and tally.
	Close(ctx context.Context, s *Session) error
	List(ctx context.Context, opts ListSessionsOptions) ([]Session, error)
	// LastID returns the last allocated voting id, 0 when none.
	LastID(ctx context.Context) (uint64, error)

	// AppendVote assigns v.Index as the current log length and stores v.
	// A second vote by the same voter fails with repository.ErrConflict.
	AppendVote(ctx context.Context, v *Vote) error
	GetVote(ctx context.Context, votingID uint64, index int) (*Vote, error)
	HasVoted(ctx context.Context, votingID uint64, voter common.Address) (bool, error)
	ListVotes(ctx context.Context, votingID uint64) ([]Vote, error)
}
