package websocket

// Message types pushed to dashboards.
const (
	// LOCK_ACQUIRED carries the public lock that was taken or upgraded.
	LOCK_ACQUIRED = "LOCK_ACQUIRED"

	// LOCK_RELEASED carries the vehicle id whose lock was dropped.
	LOCK_RELEASED = "LOCK_RELEASED"

	// LOCKS_SNAPSHOT is sent once after connect with all live locks.
	LOCKS_SNAPSHOT = "LOCKS_SNAPSHOT"
)

// Event is the envelope of every message: {"type": ..., "data": ...}.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
