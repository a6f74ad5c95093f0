package member

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Member is a registry entry. Deregistered identities keep their row with
// Trusted=false.
type Member struct {
	Address   common.Address
	Trusted   bool
	UpdatedAt time.Time
}
