package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Config struct {
	Topics   TopicRepository
	Sessions SessionRepository
	Tx       repository.Transactor
	Guard    *access.Guard
	Clock    clock.Clock
	Events   event.Publisher
	// PromRegistry may be nil, in which case metrics are not registered.
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
}

// Service runs voting sessions.
type Service struct {
	topics   TopicRepository
	sessions SessionRepository
	tx       repository.Transactor
	guard    *access.Guard
	clock    clock.Clock
	events   event.Publisher
	metrics  *metrics
	logger   *slog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Events == nil {
		cfg.Events = event.Discard
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Tx == nil {
		cfg.Tx = repository.NoTx{}
	}
	return &Service{
		topics:   cfg.Topics,
		sessions: cfg.Sessions,
		tx:       cfg.Tx,
		guard:    cfg.Guard,
		clock:    cfg.Clock,
		events:   cfg.Events,
		metrics:  newMetrics(cfg.PromRegistry),
		logger:   cfg.Logger,
	}
}

// CreateSession escalates an IDLE topic into a new session. Authority only.
func (s *Service) CreateSession(ctx context.Context, caller common.Address, req CreateSessionRequest) (*Session, error) {
	var (
		sess *Session
		t    *topic.Topic
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireAuthority(caller); err != nil {
			return err
		}
		var err error
		t, err = s.loadTopic(ctx, req.TopicID)
		if err != nil {
			return err
		}
		if t.Status != topic.StatusIdle {
			return fmt.Errorf("%w: topic %d is %s", topic.ErrInvalidState, t.ID, t.Status)
		}
		now := s.clock.Now()
		if !access.DeadlineInFuture(now, req.Deadline) {
			return fmt.Errorf("%w: %s", ErrDeadlineInPast, req.Deadline.UTC().Format(time.RFC3339))
		}

		sess = &Session{
			TopicID:     t.ID,
			Proposer:    t.Proposer,
			Deadline:    req.Deadline.UTC(),
			CreatedAt:   now,
			FinalResult: DecisionEmpty,
		}
		if err := s.sessions.Create(ctx, sess); err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		if err := t.Escalate(sess.ID, now); err != nil {
			return err
		}
		if err := s.topics.Update(ctx, t); err != nil {
			return fmt.Errorf("updating topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.sessionsCreated.Inc()
	at := sess.CreatedAt
	s.events.Publish(EventTypeSessionCreated, event.NewEvent(EventTypeSessionCreated, SessionCreatedEvent{
		Proposer:  sess.Proposer,
		TopicID:   sess.TopicID,
		VotingID:  sess.ID,
		Timestamp: at,
	}, at))
	s.events.Publish(topic.EventTypeClosed, event.NewEvent(topic.EventTypeClosed, topic.ClosedEvent{
		Proposer:  t.Proposer,
		TopicID:   t.ID,
		Subject:   t.Subject,
		Approved:  true,
		Timestamp: at,
	}, at))
	s.logger.Info("voting session created", "voting_id", sess.ID, "topic_id", sess.TopicID, "deadline", sess.Deadline)
	return sess, nil
}

// CastVote appends caller's vote to an open session. Participants only.
func (s *Service) CastVote(ctx context.Context, caller common.Address, req CastVoteRequest) (*Vote, error) {
	if !req.Decision.Valid() {
		s.metrics.rejectedVotes.WithLabelValues("invalid_decision").Inc()
		return nil, fmt.Errorf("%w: decision %s cannot be cast", ErrInvalidInput, req.Decision)
	}

	var vote *Vote
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		sess, err := s.loadSession(ctx, req.VotingID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if access.DeadlineReached(now, sess.Deadline) {
			s.metrics.rejectedVotes.WithLabelValues("deadline_reached").Inc()
			return fmt.Errorf("%w: session %d", ErrDeadlineReached, sess.ID)
		}
		voted, err := s.sessions.HasVoted(ctx, sess.ID, caller)
		if err != nil {
			return fmt.Errorf("checking vote: %w", err)
		}
		if voted {
			s.metrics.rejectedVotes.WithLabelValues("already_voted").Inc()
			return fmt.Errorf("%w: %s in session %d", ErrAlreadyVoted, caller.Hex(), sess.ID)
		}

		v := &Vote{
			VotingID:                 sess.ID,
			Voter:                    caller,
			Decision:                 req.Decision,
			Description:              req.Description,
			OpinativeValueSuggestion: req.OpinativeValueSuggestion,
			CastAt:                   now,
		}
		if err := s.sessions.AppendVote(ctx, v); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: %s in session %d", ErrAlreadyVoted, caller.Hex(), sess.ID)
			}
			return fmt.Errorf("recording vote: %w", err)
		}
		vote = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.votesCast.Inc()
	s.events.Publish(EventTypeVoteRegistered, event.NewEvent(EventTypeVoteRegistered, VoteRegisteredEvent{
		VotingID:  vote.VotingID,
		Index:     vote.Index,
		Timestamp: vote.CastAt,
	}, vote.CastAt))
	s.logger.Info("vote registered", "voting_id", vote.VotingID, "index", vote.Index)
	return vote, nil
}

// VoteCount returns the length of a session's vote log. Participants only.
func (s *Service) VoteCount(ctx context.Context, caller common.Address, votingID uint64) (int, error) {
	var count int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		sess, err := s.loadSession(ctx, votingID)
		if err != nil {
			return err
		}
		count = sess.VoteCount
		return nil
	})
	return count, err
}

// GetVote returns the vote at index, only to the identity that cast it.
func (s *Service) GetVote(ctx context.Context, caller common.Address, votingID uint64, index int) (*Vote, error) {
	var vote *Vote
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		sess, err := s.loadSession(ctx, votingID)
		if err != nil {
			return err
		}
		if index < 0 || index >= sess.VoteCount {
			return fmt.Errorf("%w: index %d, session %d has %d votes", ErrIndexOutOfBounds, index, votingID, sess.VoteCount)
		}
		v, err := s.sessions.GetVote(ctx, votingID, index)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: index %d", ErrIndexOutOfBounds, index)
			}
			return fmt.Errorf("loading vote: %w", err)
		}
		if v.Voter != caller {
			return fmt.Errorf("%w: vote %d in session %d", ErrNotTheVoter, index, votingID)
		}
		vote = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vote, nil
}

// CloseSession freezes the tally once the deadline has passed. Participants only.
func (s *Service) CloseSession(ctx context.Context, caller common.Address, votingID uint64) (*Session, error) {
	var sess *Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		var err error
		sess, err = s.loadSession(ctx, votingID)
		if err != nil {
			return err
		}
		if sess.Closed {
			return fmt.Errorf("%w: session %d", ErrSessionClosed, votingID)
		}
		now := s.clock.Now()
		if !access.DeadlineReached(now, sess.Deadline) {
			return fmt.Errorf("%w: session %d closes at %s", ErrDeadlineNotReached, votingID, sess.Deadline.Format(time.RFC3339))
		}

		votes, err := s.sessions.ListVotes(ctx, votingID)
		if err != nil {
			return fmt.Errorf("loading votes: %w", err)
		}
		sess.Tally = TallyVotes(votes)
		sess.FinalResult = sess.Tally.Result()
		sess.Closed = true
		sess.ClosedAt = &now
		if err := s.sessions.Close(ctx, sess); err != nil {
			return fmt.Errorf("closing session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.sessionsClosed.WithLabelValues(sess.FinalResult.String()).Inc()
	at := *sess.ClosedAt
	s.events.Publish(EventTypeSessionClosed, event.NewEvent(EventTypeSessionClosed, SessionClosedEvent{
		VotingID:    sess.ID,
		FinalResult: sess.FinalResult,
		Timestamp:   at,
	}, at))
	s.logger.Info("voting session closed", "voting_id", sess.ID, "result", sess.FinalResult.String(), "votes", sess.Tally.Total())
	return sess, nil
}

// GetSession returns a session with its current vote count. Participants only.
func (s *Service) GetSession(ctx context.Context, caller common.Address, votingID uint64) (*Session, error) {
	var sess *Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		var err error
		sess, err = s.loadSession(ctx, votingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns sessions ordered by id. Participants only.
func (s *Service) ListSessions(ctx context.Context, caller common.Address, opts ListSessionsOptions) ([]Session, error) {
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	opts.Limit = clampLimit(opts.Limit)

	var sessions []Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		var err error
		sessions, err = s.sessions.List(ctx, opts)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CurrentVotingID returns the last allocated voting id, 0 when none.
func (s *Service) CurrentVotingID(ctx context.Context) (uint64, error) {
	id, err := s.sessions.LastID(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading voting id: %w", err)
	}
	return id, nil
}

func (s *Service) loadTopic(ctx context.Context, id uint64) (*topic.Topic, error) {
	t, err := s.topics.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", topic.ErrTopicNotFound, id)
		}
		return nil, fmt.Errorf("loading topic: %w", err)
	}
	return t, nil
}

func (s *Service) loadSession(ctx context.Context, id uint64) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
