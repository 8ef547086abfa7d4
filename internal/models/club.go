package models

import "time"

// JoinState is the state of a user's membership in a club.
type JoinState string

const (
	JoinStatePending JoinState = "PENDING"
	JoinStateJoined  JoinState = "JOINED"
)

// Club is a named group with an owner and a member capacity.
type Club struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     int64  `json:"ownerId"`
	MaxCapacity int    `json:"maxCapacity"`
}

// JoinRequest is a PENDING club_joins row with the requester's display name.
type JoinRequest struct {
	UserID      int64     `json:"userId"`
	FullName    string    `json:"fullName"`
	RequestedAt time.Time `json:"requestedAt"`
}
