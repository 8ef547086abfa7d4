package clubs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/database"
)

// ErrNoPendingRequest is returned by ApproveJoin when the pair has no PENDING row.
var ErrNoPendingRequest = errors.New("no pending join request")

// Repository is the data access the service depends on. It performs no
// authorization or business validation.
type Repository interface {
	ClubNameExists(ctx context.Context, name string) (bool, error)
	CreateClub(ctx context.Context, data CreateClubData) (*models.Club, error)
	GetClubByID(ctx context.Context, clubID int64) (*models.Club, error)
	GetClubs(ctx context.Context) ([]models.Club, error)
	GetMyClubs(ctx context.Context, userID int64) ([]models.Club, error)
	GetJoinState(ctx context.Context, clubID, userID int64) (models.JoinState, error)
	CountJoinedUsers(ctx context.Context, clubID int64) (int, error)
	GetClubMemberIDs(ctx context.Context, clubID int64) ([]int64, error)
	GetJoinRequests(ctx context.Context, clubID int64) ([]models.JoinRequest, error)
	JoinClub(ctx context.Context, clubID, userID int64) (bool, error)
	ApproveJoin(ctx context.Context, clubID, userID int64) (bool, error)
	UpdateClub(ctx context.Context, clubID int64, data UpdateClubData) (*models.Club, error)
	UpdateOwner(ctx context.Context, clubID, ownerID int64) (bool, error)
	DeleteClub(ctx context.Context, clubID int64, now time.Time) error
	OutClub(ctx context.Context, clubID, userID int64, now time.Time) error
}

// PostgresRepository handles club, club_joins and the club side of events persistence.
type PostgresRepository struct {
	db database.DB
}

// NewRepository creates a clubs repository.
func NewRepository(db database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

const clubColumns = `id, name, description, owner_id, max_capacity`

// ClubNameExists reports whether a club already uses name.
func (r *PostgresRepository) ClubNameExists(ctx context.Context, name string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM clubs WHERE name = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, q, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateClub inserts the club and the owner's JOINED membership in one transaction.
func (r *PostgresRepository) CreateClub(ctx context.Context, data CreateClubData) (*models.Club, error) {
	const insertClub = `INSERT INTO clubs (name, description, owner_id, max_capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + clubColumns
	const insertOwner = `INSERT INTO club_joins (club_id, user_id, join_state)
		VALUES ($1, $2, 'JOINED')`

	var c models.Club
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertClub, data.Name, data.Description, data.OwnerID, data.MaxCapacity).
			Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.MaxCapacity)
		if err != nil {
			return fmt.Errorf("insert club: %w", err)
		}
		if _, err := tx.Exec(ctx, insertOwner, c.ID, data.OwnerID); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetClubByID returns the club, or nil when it does not exist.
func (r *PostgresRepository) GetClubByID(ctx context.Context, clubID int64) (*models.Club, error) {
	const q = `SELECT ` + clubColumns + ` FROM clubs WHERE id = $1`
	var c models.Club
	err := r.db.QueryRow(ctx, q, clubID).Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.MaxCapacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetClubs returns every club ordered by id.
func (r *PostgresRepository) GetClubs(ctx context.Context) ([]models.Club, error) {
	const q = `SELECT ` + clubColumns + ` FROM clubs ORDER BY id`
	return r.queryClubs(ctx, q)
}

// GetMyClubs returns clubs in which the non-deleted user holds a JOINED membership.
func (r *PostgresRepository) GetMyClubs(ctx context.Context, userID int64) ([]models.Club, error) {
	const q = `SELECT c.id, c.name, c.description, c.owner_id, c.max_capacity
		FROM clubs c
		INNER JOIN club_joins cj ON cj.club_id = c.id
		INNER JOIN users u ON u.id = cj.user_id
		WHERE cj.user_id = $1 AND cj.join_state = 'JOINED' AND u.deleted_at IS NULL
		ORDER BY c.id`
	return r.queryClubs(ctx, q, userID)
}

func (r *PostgresRepository) queryClubs(ctx context.Context, q string, args ...any) ([]models.Club, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Club{}
	for rows.Next() {
		var c models.Club
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.MaxCapacity); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// GetJoinState returns the membership state of a non-deleted user, or "" when absent.
func (r *PostgresRepository) GetJoinState(ctx context.Context, clubID, userID int64) (models.JoinState, error) {
	const q = `SELECT cj.join_state
		FROM club_joins cj
		INNER JOIN users u ON u.id = cj.user_id
		WHERE cj.club_id = $1 AND cj.user_id = $2 AND u.deleted_at IS NULL`
	var state string
	err := r.db.QueryRow(ctx, q, clubID, userID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return models.JoinState(state), nil
}

const countJoinedQuery = `SELECT COUNT(*)
	FROM club_joins cj
	INNER JOIN users u ON u.id = cj.user_id
	WHERE cj.club_id = $1 AND cj.join_state = 'JOINED' AND u.deleted_at IS NULL`

// CountJoinedUsers counts JOINED memberships of non-deleted users.
func (r *PostgresRepository) CountJoinedUsers(ctx context.Context, clubID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countJoinedQuery, clubID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetClubMemberIDs returns the ids of JOINED, non-deleted members.
func (r *PostgresRepository) GetClubMemberIDs(ctx context.Context, clubID int64) ([]int64, error) {
	const q = `SELECT cj.user_id
		FROM club_joins cj
		INNER JOIN users u ON u.id = cj.user_id
		WHERE cj.club_id = $1 AND cj.join_state = 'JOINED' AND u.deleted_at IS NULL
		ORDER BY cj.user_id`
	rows, err := r.db.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetJoinRequests returns PENDING requests, oldest first.
func (r *PostgresRepository) GetJoinRequests(ctx context.Context, clubID int64) ([]models.JoinRequest, error) {
	const q = `SELECT cj.user_id, u.full_name, cj.created_at
		FROM club_joins cj
		INNER JOIN users u ON u.id = cj.user_id
		WHERE cj.club_id = $1 AND cj.join_state = 'PENDING' AND u.deleted_at IS NULL
		ORDER BY cj.created_at ASC`
	rows, err := r.db.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.JoinRequest{}
	for rows.Next() {
		var jr models.JoinRequest
		if err := rows.Scan(&jr.UserID, &jr.FullName, &jr.RequestedAt); err != nil {
			return nil, err
		}
		list = append(list, jr)
	}
	return list, rows.Err()
}

// lockCapacity locks the club row and reports whether another JOINED member fits.
func lockCapacity(ctx context.Context, tx pgx.Tx, clubID int64) (bool, error) {
	const lock = `SELECT max_capacity FROM clubs WHERE id = $1 FOR UPDATE`
	var maxCapacity int
	if err := tx.QueryRow(ctx, lock, clubID).Scan(&maxCapacity); err != nil {
		return false, fmt.Errorf("lock club: %w", err)
	}
	var joined int
	if err := tx.QueryRow(ctx, countJoinedQuery, clubID).Scan(&joined); err != nil {
		return false, fmt.Errorf("count joined: %w", err)
	}
	return joined < maxCapacity, nil
}

// JoinClub inserts a PENDING membership while holding the club row lock.
// It returns false, and writes nothing, when the club is already full.
func (r *PostgresRepository) JoinClub(ctx context.Context, clubID, userID int64) (bool, error) {
	const q = `INSERT INTO club_joins (club_id, user_id, join_state) VALUES ($1, $2, 'PENDING')`
	var applied bool
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		fits, err := lockCapacity(ctx, tx, clubID)
		if err != nil || !fits {
			return err
		}
		if _, err := tx.Exec(ctx, q, clubID, userID); err != nil {
			return fmt.Errorf("insert join request: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// ApproveJoin moves a PENDING membership to JOINED while holding the club row lock.
// It returns false when the club is full.
func (r *PostgresRepository) ApproveJoin(ctx context.Context, clubID, userID int64) (bool, error) {
	const q = `UPDATE club_joins SET join_state = 'JOINED', updated_at = NOW()
		WHERE club_id = $1 AND user_id = $2 AND join_state = 'PENDING'`
	var applied bool
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		fits, err := lockCapacity(ctx, tx, clubID)
		if err != nil || !fits {
			return err
		}
		tag, err := tx.Exec(ctx, q, clubID, userID)
		if err != nil {
			return fmt.Errorf("approve join request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNoPendingRequest
		}
		applied = true
		return nil
	})
	return applied, err
}

// UpdateClub applies the non-nil fields. A capacity change only applies when it
// still covers the JOINED count; otherwise nil is returned and nothing changes.
func (r *PostgresRepository) UpdateClub(ctx context.Context, clubID int64, data UpdateClubData) (*models.Club, error) {
	const q = `UPDATE clubs SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			max_capacity = COALESCE($4, max_capacity),
			updated_at = NOW()
		WHERE id = $1
		  AND ($4::int IS NULL OR $4::int >= (
			SELECT COUNT(*) FROM club_joins cj
			INNER JOIN users u ON u.id = cj.user_id
			WHERE cj.club_id = $1 AND cj.join_state = 'JOINED' AND u.deleted_at IS NULL))
		RETURNING ` + clubColumns
	var c models.Club
	err := r.db.QueryRow(ctx, q, clubID, data.Name, data.Description, data.MaxCapacity).
		Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.MaxCapacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// UpdateOwner reassigns the club owner. Memberships are not touched. It returns
// false when the new owner is soft-deleted; the share lock makes it wait for an
// in-flight account deletion.
func (r *PostgresRepository) UpdateOwner(ctx context.Context, clubID, ownerID int64) (bool, error) {
	const q = `UPDATE clubs SET owner_id = $2, updated_at = NOW()
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM users WHERE id = $2 AND deleted_at IS NULL FOR SHARE)`
	tag, err := r.db.Exec(ctx, q, clubID, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteClub deletes the club and its not-yet-started events, and archives
// events that already started by detaching them from the club.
func (r *PostgresRepository) DeleteClub(ctx context.Context, clubID int64, now time.Time) error {
	const deleteUpcoming = `DELETE FROM events WHERE club_id = $1 AND start_time > $2`
	const archiveStarted = `UPDATE events SET club_id = NULL, is_archived = TRUE, updated_at = NOW()
		WHERE club_id = $1 AND start_time <= $2`
	const deleteClub = `DELETE FROM clubs WHERE id = $1`

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteUpcoming, clubID, now); err != nil {
			return fmt.Errorf("delete upcoming events: %w", err)
		}
		if _, err := tx.Exec(ctx, archiveStarted, clubID, now); err != nil {
			return fmt.Errorf("archive started events: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteClub, clubID); err != nil {
			return fmt.Errorf("delete club: %w", err)
		}
		return nil
	})
}

// OutClub removes the membership. Upcoming club events the user hosts are
// deleted; for upcoming club events hosted by others only the user's
// participation is removed. Started events are left alone.
func (r *PostgresRepository) OutClub(ctx context.Context, clubID, userID int64, now time.Time) error {
	const deleteHosted = `DELETE FROM events
		WHERE club_id = $1 AND host_id = $2 AND start_time > $3`
	const leaveJoined = `DELETE FROM event_joins ej
		USING events e
		WHERE ej.event_id = e.id AND ej.user_id = $2
		  AND e.club_id = $1 AND e.host_id <> $2 AND e.start_time > $3`
	const deleteMembership = `DELETE FROM club_joins WHERE club_id = $1 AND user_id = $2`

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteHosted, clubID, userID, now); err != nil {
			return fmt.Errorf("delete hosted events: %w", err)
		}
		if _, err := tx.Exec(ctx, leaveJoined, clubID, userID, now); err != nil {
			return fmt.Errorf("leave joined events: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteMembership, clubID, userID); err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		return nil
	})
}
