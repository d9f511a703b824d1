package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoomMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func roomRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "capacity", "equipment", "hourly_rate", "location", "created_at", "updated_at"}).
		AddRow("room-a", "Small Huddle", 4, "{projector}", 20.0, "Floor 1", now, now).
		AddRow("room-c", "Boardroom", 10, "{projector,video-conf}", 35.0, "Floor 3", now, now)
}

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newRoomMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, equipment, hourly_rate, location, created_at, updated_at FROM rooms ORDER BY created_at ASC, id ASC")).
		WillReturnRows(roomRows())

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "room-a", rooms[0].ID)
	assert.Equal(t, 4, rooms[0].Capacity)
	assert.Equal(t, []string{"projector", "video-conf"}, []string(rooms[1].Equipment))
	assert.InDelta(t, 35.0, rooms[1].HourlyRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRoomMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, equipment, hourly_rate, location, created_at, updated_at FROM rooms WHERE id = $1")).
		WithArgs("room-a").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "equipment", "hourly_rate", "location", "created_at", "updated_at"}).
			AddRow("room-a", "Small Huddle", 4, "{projector}", 20.0, "Floor 1", now, now))

	room, err := repo.FindByID(context.Background(), "room-a")
	require.NoError(t, err)
	assert.Equal(t, "room-a", room.ID)
	assert.True(t, room.HasEquipment([]string{"projector"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRoomMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery("SELECT .+ FROM rooms WHERE id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
