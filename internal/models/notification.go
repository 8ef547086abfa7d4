package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an inbox entry delivered to a user about a club change.
type Notification struct {
	ID          int64      `json:"id"`
	JobID       uuid.UUID  `json:"jobId"`
	RecipientID int64      `json:"recipientId"`
	Type        string     `json:"type"`
	ClubID      int64      `json:"clubId"`
	ClubName    string     `json:"clubName"`
	ActorID     int64      `json:"actorId"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}
