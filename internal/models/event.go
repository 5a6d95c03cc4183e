package models

import "time"

// Event represents an audited action in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "user.login", "post.delete"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	ActorID   *string   `json:"actor_id,omitempty"` // Nullable for system events
	CreatedAt time.Time `json:"created_at"`
}
