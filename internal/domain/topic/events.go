package topic

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/event"
)

const (
	EventTypeCreated event.EventType = "topic.created"
	EventTypeClosed  event.EventType = "topic.closed"
)

type CreatedEvent struct {
	Proposer  common.Address
	TopicID   uint64
	Subject   Subject
	Timestamp time.Time
}

// ClosedEvent is emitted when a topic leaves IDLE. Approved is true when it
// was escalated to a voting session.
type ClosedEvent struct {
	Proposer  common.Address
	TopicID   uint64
	Subject   Subject
	Approved  bool
	Remark    string
	Timestamp time.Time
}
