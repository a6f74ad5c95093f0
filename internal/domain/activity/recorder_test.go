package activity_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/repository/mocks"
	"github.com/rpggio/council/internal/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestEntryFromEvent(t *testing.T) {
	entry, err := activity.EntryFromEvent(event.NewEvent(topic.EventTypeClosed, topic.ClosedEvent{
		Proposer: alice,
		TopicID:  4,
		Subject:  topic.SubjectOpenMarketOperations,
		Approved: false,
		Remark:   "later",
	}, at))
	require.NoError(t, err)
	require.Equal(t, activity.TypeTopicClosed, entry.ActivityType)
	require.Equal(t, alice.Hex(), entry.Actor)
	require.Equal(t, uint64(4), *entry.TopicID)
	require.Nil(t, entry.VotingID)
	require.Equal(t, "topic 4 denied", entry.Summary)
	require.Equal(t, at, entry.CreatedAt)

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Details), &details))
	require.Equal(t, "OPEN_MARKET_OPERATIONS", details["subject"])
	require.Equal(t, "later", details["remark"])

	entry, err = activity.EntryFromEvent(event.NewEvent(voting.EventTypeVoteRegistered, voting.VoteRegisteredEvent{VotingID: 2, Index: 5}, at))
	require.NoError(t, err)
	require.Empty(t, entry.Actor, "vote notifications do not reveal the voter")
	require.Equal(t, uint64(2), *entry.VotingID)

	_, err = activity.EntryFromEvent(event.NewEvent("other", 42, at))
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestRecorderPersistsBusEvents(t *testing.T) {
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	repo := sqlite.NewActivityRepository(db)

	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	activity.NewRecorder(activity.NewService(repo, nil, nil, nil), nil).Attach(bus)

	bus.Publish(member.EventTypeUpdated, event.NewEvent(member.EventTypeUpdated, member.UpdatedEvent{Identity: alice, Trusted: true, Timestamp: at}, at))
	bus.Publish(voting.EventTypeSessionCreated, event.NewEvent(voting.EventTypeSessionCreated, voting.SessionCreatedEvent{Proposer: alice, TopicID: 1, VotingID: 1, Timestamp: at}, at))
	bus.Publish(voting.EventTypeSessionClosed, event.NewEvent(voting.EventTypeSessionClosed, voting.SessionClosedEvent{VotingID: 1, FinalResult: voting.DecisionNeutral, Timestamp: at}, at))

	entries, err := repo.List(context.Background(), activity.ListActivityOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, activity.TypeSessionClosed, entries[0].ActivityType)
	require.Equal(t, "voting session 1 closed: NEUTRAL", entries[0].Summary)
	require.Equal(t, activity.TypeMemberUpdated, entries[2].ActivityType)
}

func TestRecorderStaysSubscribedOnFailure(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("Log", mock.Anything, mock.Anything).Return(errors.New("locked")).Once()
	repo.On("Log", mock.Anything, mock.Anything).Return(nil).Once()

	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	activity.NewRecorder(activity.NewService(repo, nil, nil, nil), nil).Attach(bus)

	evt := event.NewEvent(topic.EventTypeCreated, topic.CreatedEvent{Proposer: alice, TopicID: 1, Timestamp: at}, at)
	bus.Publish(topic.EventTypeCreated, evt)
	bus.Publish(topic.EventTypeCreated, evt)
	repo.AssertNumberOfCalls(t, "Log", 2)
}

func TestRecorderStampsUndatedEventsWithClock(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("Log", mock.Anything, mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.CreatedAt.Equal(at)
	})).Return(nil).Once()

	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	activity.NewRecorder(activity.NewService(repo, nil, clock.NewManual(at), nil), nil).Attach(bus)

	bus.Publish(topic.EventTypeCreated, event.Event{
		Type: topic.EventTypeCreated,
		Data: topic.CreatedEvent{Proposer: alice, TopicID: 1},
	})
	repo.AssertExpectations(t)
}
