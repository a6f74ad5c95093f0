package member

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/identity"
	"github.com/rpggio/council/internal/repository"
)

type Config struct {
	Members Repository
	Tx      repository.Transactor
	Guard   *access.Guard
	Clock   clock.Clock
	Events  event.Publisher
	Logger  *slog.Logger
}

// Service manages the member registry.
type Service struct {
	members Repository
	tx      repository.Transactor
	guard   *access.Guard
	clock   clock.Clock
	events  event.Publisher
	logger  *slog.Logger
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
		members: cfg.Members,
		tx:      cfg.Tx,
		guard:   cfg.Guard,
		clock:   cfg.Clock,
		events:  cfg.Events,
		logger:  cfg.Logger,
	}
}

// Authority returns the fixed authority identity.
func (s *Service) Authority() common.Address {
	return s.guard.Authority()
}

// Role reports the caller's role.
func (s *Service) Role(ctx context.Context, caller common.Address) (access.Role, error) {
	return s.guard.Role(ctx, caller)
}

// Register marks addr as trusted. Registering an existing member is a no-op.
func (s *Service) Register(ctx context.Context, caller, addr common.Address) error {
	return s.setTrusted(ctx, caller, addr, true)
}

// Deregister clears addr's trust. Unknown identities are a no-op.
func (s *Service) Deregister(ctx context.Context, caller, addr common.Address) error {
	return s.setTrusted(ctx, caller, addr, false)
}

func (s *Service) setTrusted(ctx context.Context, caller, addr common.Address, trusted bool) error {
	var (
		changed bool
		m       *Member
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireAuthority(caller); err != nil {
			return err
		}
		if identity.IsZero(addr) {
			return fmt.Errorf("%w: zero address", ErrInvalidInput)
		}
		m = &Member{Address: addr, Trusted: trusted, UpdatedAt: s.clock.Now()}
		var err error
		changed, err = s.members.SetTrusted(ctx, m)
		if err != nil {
			return fmt.Errorf("updating member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.events.Publish(EventTypeUpdated, event.NewEvent(EventTypeUpdated, UpdatedEvent{
		Identity:  m.Address,
		Trusted:   m.Trusted,
		Timestamp: m.UpdatedAt,
	}, m.UpdatedAt))
	s.logger.Info("member updated", "identity", addr.Hex(), "trusted", trusted)
	return nil
}

// IsMember reports registry membership. Open to everyone.
func (s *Service) IsMember(ctx context.Context, addr common.Address) (bool, error) {
	trusted, err := s.members.IsTrusted(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return trusted, nil
}

// List returns trusted members. Participants only.
func (s *Service) List(ctx context.Context, caller common.Address) ([]Member, error) {
	var members []Member
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.guard.RequireParticipant(ctx, caller); err != nil {
			return err
		}
		var err error
		members, err = s.members.List(ctx)
		if err != nil {
			return fmt.Errorf("listing members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
