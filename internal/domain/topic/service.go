package topic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Config struct {
	Topics Repository
	Tx     repository.Transactor
	Guard  *access.Guard
	Clock  clock.Clock
	Events event.Publisher
	Logger *slog.Logger
}

// Service owns the topic ledger.
type Service struct {
	topics Repository
	tx     repository.Transactor
	guard  *access.Guard
	clock  clock.Clock
	events event.Publisher
	logger *slog.Logger
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
		topics: cfg.Topics,
		tx:     cfg.Tx,
		guard:  cfg.Guard,
		clock:  cfg.Clock,
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

// Create records a new IDLE topic proposed by caller.
func (s *Service) Create(ctx context.Context, caller common.Address, req CreateRequest) (*Topic, error) {
	var created *Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		if !req.Subject.Valid() {
			return fmt.Errorf("%w: unknown subject %d", ErrInvalidInput, req.Subject)
		}
		t := &Topic{
			Proposer:       caller,
			Subject:        req.Subject,
			Objective:      req.Objective,
			Description:    req.Description,
			SuggestedValue: req.SuggestedValue,
			Status:         StatusIdle,
			CreatedAt:      s.clock.Now(),
		}
		if err := s.topics.Create(ctx, t); err != nil {
			return fmt.Errorf("creating topic: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(EventTypeCreated, event.NewEvent(EventTypeCreated, CreatedEvent{
		Proposer:  created.Proposer,
		TopicID:   created.ID,
		Subject:   created.Subject,
		Timestamp: created.CreatedAt,
	}, created.CreatedAt))
	s.logger.Info("topic created", "topic_id", created.ID, "proposer", created.Proposer.Hex(), "subject", created.Subject.String())
	return created, nil
}

// Deny closes an IDLE topic without a vote. Authority only.
func (s *Service) Deny(ctx context.Context, caller common.Address, id uint64, remark string) (*Topic, error) {
	var denied *Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireAuthority(caller); err != nil {
			return err
		}
		t, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := t.Deny(remark, s.clock.Now()); err != nil {
			return err
		}
		if err := s.topics.Update(ctx, t); err != nil {
			return fmt.Errorf("updating topic: %w", err)
		}
		denied = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	at := *denied.ClosedAt
	s.events.Publish(EventTypeClosed, event.NewEvent(EventTypeClosed, ClosedEvent{
		Proposer:  denied.Proposer,
		TopicID:   denied.ID,
		Subject:   denied.Subject,
		Approved:  false,
		Remark:    denied.DenialRemark,
		Timestamp: at,
	}, at))
	s.logger.Info("topic denied", "topic_id", denied.ID)
	return denied, nil
}

// Get returns a topic by id. Topic reads are public.
func (s *Service) Get(ctx context.Context, id uint64) (*Topic, error) {
	return s.load(ctx, id)
}

// List returns topics ordered by id.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Topic, error) {
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *opts.Status)
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	opts.Limit = clampLimit(opts.Limit)
	topics, err := s.topics.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	return topics, nil
}

func (s *Service) load(ctx context.Context, id uint64) (*Topic, error) {
	t, err := s.topics.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTopicNotFound, id)
		}
		return nil, fmt.Errorf("loading topic: %w", err)
	}
	return t, nil
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
