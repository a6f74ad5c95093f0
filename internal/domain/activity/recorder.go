package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/event"
)

// RecordedTypes are the event types the recorder persists.
var RecordedTypes = []event.EventType{
	member.EventTypeUpdated,
	topic.EventTypeCreated,
	topic.EventTypeClosed,
	voting.EventTypeSessionCreated,
	voting.EventTypeVoteRegistered,
	voting.EventTypeSessionClosed,
}

// Recorder is an event bus subscriber that writes every notification to
// the activity log. It runs on the publishing goroutine, after the
// mutation's transaction has committed.
type Recorder struct {
	svc    *Service
	logger *slog.Logger
}

func NewRecorder(svc *Service, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{svc: svc, logger: logger}
}

// Attach registers the recorder for every recorded type.
func (r *Recorder) Attach(bus *event.EventBus) {
	for _, t := range RecordedTypes {
		bus.RegisterSubscriber(t, r)
	}
}

// Deliver always returns nil so the bus keeps the recorder subscribed.
// Failures are logged.
func (r *Recorder) Deliver(evt event.Event) error {
	entry, err := EntryFromEvent(evt)
	if err != nil {
		r.logger.Warn("activity not recorded", "type", evt.Type, "err", err)
		return nil
	}
	if err := r.svc.LogActivity(context.Background(), entry); err != nil {
		r.logger.Error("activity not recorded", "type", evt.Type, "err", err)
	}
	return nil
}

func (r *Recorder) Close() {}

// EntryFromEvent converts a domain event into an activity entry.
func EntryFromEvent(evt event.Event) (*ActivityEntry, error) {
	entry := &ActivityEntry{
		ActivityType: ActivityType(evt.Type),
		CreatedAt:    evt.Timestamp.UTC(),
	}
	var details any
	switch data := evt.Data.(type) {
	case member.UpdatedEvent:
		entry.Actor = data.Identity.Hex()
		if data.Trusted {
			entry.Summary = fmt.Sprintf("member %s registered", data.Identity.Hex())
		} else {
			entry.Summary = fmt.Sprintf("member %s deregistered", data.Identity.Hex())
		}
		details = map[string]any{"identity": data.Identity.Hex(), "trusted": data.Trusted}
	case topic.CreatedEvent:
		entry.Actor = data.Proposer.Hex()
		entry.TopicID = ptr(data.TopicID)
		entry.Summary = fmt.Sprintf("topic %d created (%s)", data.TopicID, data.Subject)
		details = map[string]any{"proposer": data.Proposer.Hex(), "topic_id": data.TopicID, "subject": data.Subject.String()}
	case topic.ClosedEvent:
		entry.Actor = data.Proposer.Hex()
		entry.TopicID = ptr(data.TopicID)
		if data.Approved {
			entry.Summary = fmt.Sprintf("topic %d approved for voting", data.TopicID)
		} else {
			entry.Summary = fmt.Sprintf("topic %d denied", data.TopicID)
		}
		details = map[string]any{
			"proposer": data.Proposer.Hex(),
			"topic_id": data.TopicID,
			"subject":  data.Subject.String(),
			"approved": data.Approved,
			"remark":   data.Remark,
		}
	case voting.SessionCreatedEvent:
		entry.Actor = data.Proposer.Hex()
		entry.TopicID = ptr(data.TopicID)
		entry.VotingID = ptr(data.VotingID)
		entry.Summary = fmt.Sprintf("voting session %d opened for topic %d", data.VotingID, data.TopicID)
		details = map[string]any{"proposer": data.Proposer.Hex(), "topic_id": data.TopicID, "voting_id": data.VotingID}
	case voting.VoteRegisteredEvent:
		entry.VotingID = ptr(data.VotingID)
		entry.Summary = fmt.Sprintf("vote %d registered in session %d", data.Index, data.VotingID)
		details = map[string]any{"voting_id": data.VotingID, "index": data.Index}
	case voting.SessionClosedEvent:
		entry.VotingID = ptr(data.VotingID)
		entry.Summary = fmt.Sprintf("voting session %d closed: %s", data.VotingID, data.FinalResult)
		details = map[string]any{"voting_id": data.VotingID, "final_result": data.FinalResult.String()}
	default:
		return nil, fmt.Errorf("%w: unexpected payload %T", ErrInvalidInput, evt.Data)
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encoding details: %w", err)
	}
	entry.Details = string(raw)
	return entry, nil
}

func ptr[T any](v T) *T { return &v }
