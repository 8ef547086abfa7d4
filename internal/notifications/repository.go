package notifications

import (
	"context"

	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/database"
)

// Repository handles the notification inbox.
type Repository struct {
	db database.DB
}

// NewRepository creates a notifications repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a notification. Redelivered jobs are ignored by job id.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (job_id, recipient_id, type, club_id, club_name, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO NOTHING`
	_, err := r.db.Exec(ctx, q, n.JobID, n.RecipientID, n.Type, n.ClubID, n.ClubName, n.ActorID)
	return err
}

// ListForUser returns the user's newest notifications first.
func (r *Repository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	const q = `SELECT id, job_id, recipient_id, type, club_id, club_name, actor_id, created_at, read_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.JobID, &n.RecipientID, &n.Type, &n.ClubID, &n.ClubName, &n.ActorID, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkAllRead sets read_at on the user's unread notifications.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	const q = `UPDATE notifications SET read_at = NOW() WHERE recipient_id = $1 AND read_at IS NULL`
	tag, err := r.db.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
