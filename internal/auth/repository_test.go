package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "created_at", "updated_at"}

func TestRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND deleted_at IS NULL`).
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(1), "a@example.com", "hash", "Alice", now, now))

	repo := NewRepository(mock)
	u, err := repo.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Alice", u.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SoftDelete(t *testing.T) {
	t.Run("owner is blocked", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 AND deleted_at IS NULL FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM clubs WHERE owner_id = \$1\)`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err = NewRepository(mock).SoftDelete(context.Background(), 1)
		assert.ErrorIs(t, err, ErrOwnsClubs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member is deleted under the row lock", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(`UPDATE users SET deleted_at = NOW\(\)`).
			WithArgs(int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		assert.NoError(t, NewRepository(mock).SoftDelete(context.Background(), 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already deleted", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(int64(3)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err = NewRepository(mock).SoftDelete(context.Background(), 3)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
