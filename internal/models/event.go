package models

import "time"

// Event is a scheduled gathering. ClubID is nil once the event has been
// archived out of a deleted club.
type Event struct {
	ID         int64     `json:"id"`
	HostID     int64     `json:"hostId"`
	ClubID     *int64    `json:"clubId"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	IsArchived bool      `json:"isArchived"`
}

