package session

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-console/internal/models"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db, zerolog.New(io.Discard)), mock
}

func TestHashID_IsStableAndOpaque(t *testing.T) {
	h := hashID("session-1")
	assert.Len(t, h, 64)
	assert.Equal(t, h, hashID("session-1"))
	assert.NotEqual(t, h, hashID("session-2"))
	assert.NotContains(t, h, "session")
}

func TestMySQLStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO console_sessions")).
		WithArgs(hashID("s1"), "tok", "admin", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Save(context.Background(), Record{
		ID:        "s1",
		Identity:  Identity{Token: "tok", Role: models.RoleAdmin},
		CreatedAt: now,
		LastSeen:  now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	seen := created.Add(time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token, role, created_at, last_seen_at FROM console_sessions WHERE id_hash = ?")).
		WithArgs(hashID("s1")).
		WillReturnRows(sqlmock.NewRows([]string{"token", "role", "created_at", "last_seen_at"}).
			AddRow("tok", "superviseur", created, seen))

	rec, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.ID)
	assert.Equal(t, Identity{Token: "tok", Role: models.RoleSupervisor}, rec.Identity)
	assert.Equal(t, seen, rec.LastSeen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token, role")).
		WithArgs(hashID("gone")).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMySQLStore_GetDatabaseError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token, role")).WillReturnError(boom)

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMySQLStore_TouchAndDelete(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE console_sessions SET last_seen_at = ? WHERE id_hash = ?")).
		WithArgs(sqlmock.AnyArg(), hashID("s1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM console_sessions WHERE id_hash = ?")).
		WithArgs(hashID("s1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Touch(ctx, "s1", time.Now()))
	require.NoError(t, store.Delete(ctx, "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_PurgeIdle(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM console_sessions WHERE last_seen_at < ?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	m := NewManager(store, time.Minute, zerolog.New(io.Discard))
	defer m.Close()

	n, err := m.PurgeIdle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
