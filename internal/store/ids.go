// ids.go — opaque ID generation and time helpers shared across repositories.
package store

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh opaque identifier suitable for event_id, network_id,
// snapshot_id, asset_id, or a dispatcher command_id.
func NewID() string {
	return uuid.NewString()
}

// nowMillis is the Store's one clock read; entities that embed a millisecond
// epoch timestamp (Event.timestamp, Session.created_at, ...) go through it.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
