package entity

import (
	"encoding/json"
	"time"
)

// Message is one pending delivery in the notification outbox. An external
// dispatcher drains rows where DispatchedAt is nil.
type Message struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"userID" db:"user_id"`
	Event        string          `json:"event" db:"event"`
	Domain       string          `json:"domain" db:"domain"`
	SubjectID    string          `json:"subjectID" db:"subject_id"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	DispatchedAt *time.Time      `json:"dispatchedAt,omitempty" db:"dispatched_at"`
}
