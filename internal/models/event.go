package models

import "time"

// Event represents a recorded marketplace activity.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "product.create", "user.signup"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	SubjectID *string   `json:"subjectId,omitempty"` // ID of the user, category or product involved
	CreatedAt time.Time `json:"createdAt"`
}
