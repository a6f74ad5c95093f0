package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/stretchr/testify/mock"
)

// MemberRepository is a mock for member.Repository.
type MemberRepository struct {
	mock.Mock
}

func (m *MemberRepository) SetTrusted(ctx context.Context, mem *member.Member) (bool, error) {
	args := m.Called(ctx, mem)
	return args.Bool(0), args.Error(1)
}

func (m *MemberRepository) IsTrusted(ctx context.Context, addr common.Address) (bool, error) {
	args := m.Called(ctx, addr)
	return args.Bool(0), args.Error(1)
}

func (m *MemberRepository) List(ctx context.Context) ([]member.Member, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]member.Member); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// TopicRepository is a mock for topic.Repository.
type TopicRepository struct {
	mock.Mock
}

func (m *TopicRepository) Create(ctx context.Context, t *topic.Topic) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TopicRepository) Get(ctx context.Context, id uint64) (*topic.Topic, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*topic.Topic); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TopicRepository) Update(ctx context.Context, t *topic.Topic) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *TopicRepository) List(ctx context.Context, opts topic.ListOptions) ([]topic.Topic, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]topic.Topic); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionRepository is a mock for voting.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, s *voting.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, id uint64) (*voting.Session, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*voting.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Close(ctx context.Context, s *voting.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionRepository) List(ctx context.Context, opts voting.ListSessionsOptions) ([]voting.Session, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]voting.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) LastID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *SessionRepository) AppendVote(ctx context.Context, v *voting.Vote) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *SessionRepository) GetVote(ctx context.Context, votingID uint64, index int) (*voting.Vote, error) {
	args := m.Called(ctx, votingID, index)
	if v, ok := args.Get(0).(*voting.Vote); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) HasVoted(ctx context.Context, votingID uint64, voter common.Address) (bool, error) {
	args := m.Called(ctx, votingID, voter)
	return args.Bool(0), args.Error(1)
}

func (m *SessionRepository) ListVotes(ctx context.Context, votingID uint64) ([]voting.Vote, error) {
	args := m.Called(ctx, votingID)
	if list, ok := args.Get(0).([]voting.Vote); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
