package member

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/event"
)

const EventTypeUpdated event.EventType = "member.updated"

type UpdatedEvent struct {
	Identity  common.Address
	Trusted   bool
	Timestamp time.Time
}
