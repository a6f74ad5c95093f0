package voting_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/repository"
	"github.com/rpggio/council/internal/repository/mocks"
	"github.com/rpggio/council/internal/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	authority = common.HexToAddress("0xa0")
	alice     = common.HexToAddress("0xa11ce")
	bob       = common.HexToAddress("0xb0b")
	carol     = common.HexToAddress("0xca201")
	outsider  = common.HexToAddress("0x0dd")
	start     = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ event.EventType, evt event.Event) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []event.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	clock   *clock.Manual
	pub     *recordingPublisher
	reg     *prometheus.Registry
	db      *sqlite.DB
	members *member.Service
	topics  *topic.Service
	voting  *voting.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	h := &harness{
		clock: clock.NewManual(start),
		pub:   &recordingPublisher{},
		reg:   prometheus.NewRegistry(),
		db:    db,
	}
	memberRepo := sqlite.NewMemberRepository(db)
	topicRepo := sqlite.NewTopicRepository(db)
	guard := access.NewGuard(authority, memberRepo)

	h.members = member.NewService(member.Config{
		Members: memberRepo, Tx: db, Guard: guard, Clock: h.clock, Events: h.pub,
	})
	h.topics = topic.NewService(topic.Config{
		Topics: topicRepo, Tx: db, Guard: guard, Clock: h.clock, Events: h.pub,
	})
	h.voting = voting.NewService(voting.Config{
		Topics:       topicRepo,
		Sessions:     sqlite.NewSessionRepository(db),
		Tx:           db,
		Guard:        guard,
		Clock:        h.clock,
		Events:       h.pub,
		PromRegistry: h.reg,
	})

	ctx := context.Background()
	for _, m := range []common.Address{alice, bob, carol} {
		require.NoError(t, h.members.Register(ctx, authority, m))
	}
	return h
}

func (h *harness) openSession(t *testing.T, deadline time.Duration) *voting.Session {
	t.Helper()
	ctx := context.Background()
	tp, err := h.topics.Create(ctx, alice, topic.CreateRequest{
		Subject:        topic.SubjectInterestRate,
		Objective:      "cut rates",
		Description:    "cut 25bp",
		SuggestedValue: 25,
	})
	require.NoError(t, err)
	sess, err := h.voting.CreateSession(ctx, authority, voting.CreateSessionRequest{
		TopicID:  tp.ID,
		Deadline: h.clock.Now().Add(deadline),
	})
	require.NoError(t, err)
	return sess
}

func (h *harness) vote(t *testing.T, voter common.Address, votingID uint64, d voting.Decision) *voting.Vote {
	t.Helper()
	v, err := h.voting.CastVote(context.Background(), voter, voting.CastVoteRequest{
		VotingID: votingID,
		Decision: d,
	})
	require.NoError(t, err)
	return v
}

func TestCreateSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tp, err := h.topics.Create(ctx, bob, topic.CreateRequest{Subject: topic.SubjectReserveRequirement, Objective: "raise"})
	require.NoError(t, err)

	_, err = h.voting.CreateSession(ctx, alice, voting.CreateSessionRequest{TopicID: tp.ID, Deadline: start.Add(time.Hour)})
	require.ErrorIs(t, err, access.ErrUnauthorized)

	_, err = h.voting.CreateSession(ctx, authority, voting.CreateSessionRequest{TopicID: 99, Deadline: start.Add(time.Hour)})
	require.ErrorIs(t, err, topic.ErrTopicNotFound)

	_, err = h.voting.CreateSession(ctx, authority, voting.CreateSessionRequest{TopicID: tp.ID, Deadline: start})
	require.ErrorIs(t, err, voting.ErrDeadlineInPast)

	before := len(h.pub.types())
	sess, err := h.voting.CreateSession(ctx, authority, voting.CreateSessionRequest{TopicID: tp.ID, Deadline: start.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, uint64(1), sess.ID)
	require.Equal(t, bob, sess.Proposer)
	require.False(t, sess.Closed)

	got, err := h.topics.Get(ctx, tp.ID)
	require.NoError(t, err)
	require.Equal(t, topic.StatusVoting, got.Status)
	require.Equal(t, sess.ID, got.VotingID)

	require.Equal(t, []event.EventType{voting.EventTypeSessionCreated, topic.EventTypeClosed}, h.pub.types()[before:])
	closed := h.pub.events[len(h.pub.events)-1].Data.(topic.ClosedEvent)
	require.True(t, closed.Approved)
	require.Equal(t, bob, closed.Proposer)

	_, err = h.voting.CreateSession(ctx, authority, voting.CreateSessionRequest{TopicID: tp.ID, Deadline: start.Add(time.Hour)})
	require.ErrorIs(t, err, topic.ErrInvalidState)

	id, err := h.voting.CurrentVotingID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.Equal(t, 1.0, counterValue(t, h.reg, "council_voting_sessions_created_total"))
}

func TestCreateSessionOnDeniedTopic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tp, err := h.topics.Create(ctx, alice, topic.CreateRequest{Subject: topic.SubjectExchangeRate})
	require.NoError(t, err)
	_, err = h.topics.Deny(ctx, authority, tp.ID, "no")
	require.NoError(t, err)

	_, err = h.voting.CreateSession(ctx, authority, voting.CreateSessionRequest{TopicID: tp.ID, Deadline: start.Add(time.Hour)})
	require.ErrorIs(t, err, topic.ErrInvalidState)

	id, err := h.voting.CurrentVotingID(ctx)
	require.NoError(t, err)
	require.Zero(t, id, "failed escalation must not consume a voting id")
}

func TestCastVote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.openSession(t, time.Hour)

	_, err := h.voting.CastVote(ctx, outsider, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionPositive})
	require.ErrorIs(t, err, access.ErrUnauthorized)

	_, err = h.voting.CastVote(ctx, alice, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionEmpty})
	require.ErrorIs(t, err, voting.ErrInvalidInput)

	_, err = h.voting.CastVote(ctx, outsider, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionEmpty})
	require.ErrorIs(t, err, voting.ErrInvalidInput, "decision is validated before the caller")

	_, err = h.voting.CastVote(ctx, alice, voting.CastVoteRequest{VotingID: 42, Decision: voting.DecisionPositive})
	require.ErrorIs(t, err, voting.ErrSessionNotFound)

	first, err := h.voting.CastVote(ctx, alice, voting.CastVoteRequest{
		VotingID:                 sess.ID,
		Decision:                 voting.DecisionPositive,
		Description:              "support",
		OpinativeValueSuggestion: 50,
	})
	require.NoError(t, err)
	require.Equal(t, 0, first.Index)
	require.Equal(t, start, first.CastAt)

	second := h.vote(t, authority, sess.ID, voting.DecisionNegative)
	require.Equal(t, 1, second.Index)

	_, err = h.voting.CastVote(ctx, alice, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionNeutral})
	require.ErrorIs(t, err, voting.ErrAlreadyVoted)

	count, err := h.voting.VoteCount(ctx, bob, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = h.voting.VoteCount(ctx, outsider, sess.ID)
	require.ErrorIs(t, err, access.ErrUnauthorized)
	_, err = h.voting.VoteCount(ctx, outsider, 42)
	require.ErrorIs(t, err, access.ErrUnauthorized, "role is checked before the session")
	_, err = h.voting.VoteCount(ctx, bob, 42)
	require.ErrorIs(t, err, voting.ErrSessionNotFound)

	last := h.pub.events[len(h.pub.events)-1]
	require.Equal(t, voting.EventTypeVoteRegistered, last.Type)
	require.Equal(t, voting.VoteRegisteredEvent{VotingID: sess.ID, Index: 1, Timestamp: start}, last.Data)
}

func TestCastVoteDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.openSession(t, time.Hour)

	h.clock.Advance(time.Hour - time.Nanosecond)
	h.vote(t, alice, sess.ID, voting.DecisionPositive)

	h.clock.Advance(time.Nanosecond)
	_, err := h.voting.CastVote(ctx, bob, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionPositive})
	require.ErrorIs(t, err, voting.ErrDeadlineReached)
}

func TestGetVote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.openSession(t, time.Hour)
	h.vote(t, alice, sess.ID, voting.DecisionAbstention)

	v, err := h.voting.GetVote(ctx, alice, sess.ID, 0)
	require.NoError(t, err)
	require.Equal(t, voting.DecisionAbstention, v.Decision)

	_, err = h.voting.GetVote(ctx, bob, sess.ID, 0)
	require.ErrorIs(t, err, voting.ErrNotTheVoter)

	_, err = h.voting.GetVote(ctx, authority, sess.ID, 0)
	require.ErrorIs(t, err, voting.ErrNotTheVoter)

	_, err = h.voting.GetVote(ctx, alice, sess.ID, 1)
	require.ErrorIs(t, err, voting.ErrIndexOutOfBounds)

	_, err = h.voting.GetVote(ctx, alice, sess.ID, -1)
	require.ErrorIs(t, err, voting.ErrIndexOutOfBounds)

	_, err = h.voting.GetVote(ctx, alice, 9, 0)
	require.ErrorIs(t, err, voting.ErrSessionNotFound)

	_, err = h.voting.GetVote(ctx, outsider, sess.ID, 0)
	require.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestCloseSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.openSession(t, time.Hour)

	h.vote(t, alice, sess.ID, voting.DecisionPositive)
	h.vote(t, bob, sess.ID, voting.DecisionPositive)
	h.vote(t, carol, sess.ID, voting.DecisionNegative)

	_, err := h.voting.CloseSession(ctx, alice, sess.ID)
	require.ErrorIs(t, err, voting.ErrDeadlineNotReached)

	h.clock.Advance(time.Hour)

	_, err = h.voting.CloseSession(ctx, outsider, sess.ID)
	require.ErrorIs(t, err, access.ErrUnauthorized)

	_, err = h.voting.CloseSession(ctx, alice, 77)
	require.ErrorIs(t, err, voting.ErrSessionNotFound)

	closed, err := h.voting.CloseSession(ctx, bob, sess.ID)
	require.NoError(t, err)
	require.True(t, closed.Closed)
	require.Equal(t, voting.DecisionPositive, closed.FinalResult)
	require.Equal(t, voting.Tally{Positive: 2, Negative: 1}, closed.Tally)
	require.Equal(t, start.Add(time.Hour), *closed.ClosedAt)

	last := h.pub.events[len(h.pub.events)-1]
	require.Equal(t, voting.SessionClosedEvent{VotingID: sess.ID, FinalResult: voting.DecisionPositive, Timestamp: start.Add(time.Hour)}, last.Data)

	_, err = h.voting.CloseSession(ctx, authority, sess.ID)
	require.ErrorIs(t, err, voting.ErrSessionClosed)
	require.ErrorIs(t, err, voting.ErrInvalidState)

	reloaded, err := h.voting.GetSession(ctx, carol, sess.ID)
	require.NoError(t, err)
	require.Equal(t, voting.DecisionPositive, reloaded.FinalResult)
	require.Equal(t, 3, reloaded.VoteCount)

	_, err = h.voting.CastVote(ctx, authority, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionNeutral})
	require.ErrorIs(t, err, voting.ErrDeadlineReached)
}

func TestCloseSessionResults(t *testing.T) {
	tests := []struct {
		name  string
		votes []voting.Decision
		want  voting.Decision
	}{
		{"no votes", nil, voting.DecisionEmpty},
		{"tie", []voting.Decision{voting.DecisionPositive, voting.DecisionNegative}, voting.DecisionNeutral},
		{"abstain", []voting.Decision{voting.DecisionAbstention}, voting.DecisionAbstention},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			sess := h.openSession(t, time.Minute)
			voters := []common.Address{alice, bob, carol}
			for i, d := range tt.votes {
				h.vote(t, voters[i], sess.ID, d)
			}
			h.clock.Advance(time.Minute)
			closed, err := h.voting.CloseSession(context.Background(), authority, sess.ID)
			require.NoError(t, err)
			require.Equal(t, tt.want, closed.FinalResult)
		})
	}
}

func TestConcurrentVotesAreSerialized(t *testing.T) {
	h := newHarness(t)
	sess := h.openSession(t, time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.voting.CastVote(context.Background(), alice, voting.CastVoteRequest{VotingID: sess.ID, Decision: voting.DecisionPositive})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, voting.ErrAlreadyVoted):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 7, dup)
}

func TestListSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.openSession(t, time.Minute)
	h.openSession(t, time.Hour)

	h.clock.Advance(time.Minute)
	_, err := h.voting.CloseSession(ctx, alice, first.ID)
	require.NoError(t, err)

	all, err := h.voting.ListSessions(ctx, alice, voting.ListSessionsOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	open := false
	openOnly, err := h.voting.ListSessions(ctx, alice, voting.ListSessionsOptions{Closed: &open})
	require.NoError(t, err)
	require.Len(t, openOnly, 1)
	require.Equal(t, uint64(2), openOnly[0].ID)

	_, err = h.voting.ListSessions(ctx, outsider, voting.ListSessionsOptions{})
	require.ErrorIs(t, err, access.ErrUnauthorized)
}

func TestCastVoteMapsStorageConflict(t *testing.T) {
	members := &mocks.MemberRepository{}
	members.On("IsTrusted", mock.Anything, alice).Return(true, nil)
	sessions := &mocks.SessionRepository{}
	sessions.On("Get", mock.Anything, uint64(1)).Return(&voting.Session{ID: 1, Deadline: start.Add(time.Hour)}, nil)
	sessions.On("HasVoted", mock.Anything, uint64(1), alice).Return(false, nil)
	sessions.On("AppendVote", mock.Anything, mock.Anything).Return(repository.ErrConflict)

	svc := voting.NewService(voting.Config{
		Topics:   &mocks.TopicRepository{},
		Sessions: sessions,
		Guard:    access.NewGuard(authority, members),
		Clock:    clock.NewManual(start),
	})
	_, err := svc.CastVote(context.Background(), alice, voting.CastVoteRequest{VotingID: 1, Decision: voting.DecisionNeutral})
	require.ErrorIs(t, err, voting.ErrAlreadyVoted)
	sessions.AssertExpectations(t)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
