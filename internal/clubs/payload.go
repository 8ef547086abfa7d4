package clubs

import (
	"errors"

	"github.com/oapi-codegen/nullable"

	"github.com/clubhouse/backend/internal/models"
)

// CreateClubPayload is the body for POST /clubs.
type CreateClubPayload struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	MaxCapacity int    `json:"maxCapacity" binding:"required,min=1"`
}

// UpdateClubPayload is the body for PATCH /clubs/:clubId. An omitted field is
// left unchanged; an explicit null is rejected by the service.
type UpdateClubPayload struct {
	Name        nullable.Nullable[string] `json:"name"`
	Description nullable.Nullable[string] `json:"description"`
	MaxCapacity nullable.Nullable[int]    `json:"maxCapacity"`
}

// Validate checks the payload shape. Null checks are left to the service.
func (p UpdateClubPayload) Validate() error {
	if p.MaxCapacity.IsSpecified() && !p.MaxCapacity.IsNull() {
		if p.MaxCapacity.MustGet() < 1 {
			return errors.New("maxCapacity must be at least 1")
		}
	}
	return nil
}

// DelegatePayload is the body for PUT /clubs/:clubId/delegate.
type DelegatePayload struct {
	UserID int64 `json:"userId" binding:"required,min=1"`
}

// ApprovePayload is the body for POST /clubs/:clubId/approve.
type ApprovePayload struct {
	UserID int64 `json:"userId" binding:"required,min=1"`
}

// CreateClubData is what the repository needs to insert a club.
type CreateClubData struct {
	OwnerID     int64
	Name        string
	Description string
	MaxCapacity int
}

// UpdateClubData holds the fields to change; nil means unchanged.
type UpdateClubData struct {
	Name        *string
	Description *string
	MaxCapacity *int
}

// ClubDto is the club projection returned to callers.
type ClubDto struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     int64  `json:"ownerId"`
	MaxCapacity int    `json:"maxCapacity"`
}

// ClubListDto wraps a list of clubs.
type ClubListDto struct {
	Clubs []ClubDto `json:"clubs"`
}

// JoinRequestListDto wraps the pending join requests of a club.
type JoinRequestListDto struct {
	Requests []models.JoinRequest `json:"requests"`
}

func clubDtoFrom(c *models.Club) ClubDto {
	return ClubDto{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		OwnerID:     c.OwnerID,
		MaxCapacity: c.MaxCapacity,
	}
}

func clubListDtoFrom(list []models.Club) ClubListDto {
	out := ClubListDto{Clubs: make([]ClubDto, 0, len(list))}
	for i := range list {
		out.Clubs = append(out.Clubs, clubDtoFrom(&list[i]))
	}
	return out
}
