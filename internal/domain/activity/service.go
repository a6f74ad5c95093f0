package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service handles activity log operations.
type Service struct {
	repo   Repository
	guard  *access.Guard
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, guard *access.Guard, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, guard: guard, clock: clk, logger: logger}
}

// LogActivity stores entry, stamping it with the clock when CreatedAt is unset.
func (s *Service) LogActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now().UTC()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists entries newest first. Participants only.
func (s *Service) GetRecentActivity(ctx context.Context, caller common.Address, opts ListActivityOptions) ([]ActivityEntry, error) {
	if err := s.guard.RequireParticipant(ctx, caller); err != nil {
		return nil, err
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultListLimit
	case opts.Limit > maxListLimit:
		opts.Limit = maxListLimit
	}
	return s.repo.List(ctx, opts)
}
