package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/intake-calendar/internal/model"
)

const selectContainerByKey = `SELECT id, slot_date, purpose, capacity_limit, created_at FROM containers WHERE slot_date = ? AND purpose = ?`

func containerRow(id uint64, day string, purpose model.Purpose, limit uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "slot_date", "purpose", "capacity_limit", "created_at"}).
		AddRow(id, day, string(purpose), limit, time.Now())
}

func TestContainerRepo_Resolve_Existing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectContainerByKey)).
		WithArgs("2025-03-10", "MEETING").
		WillReturnRows(containerRow(7, "2025-03-10", model.PurposeMeeting, 20))

	repo := NewContainerRepo(db)
	c, err := repo.Resolve(context.Background(), "2025-03-10", model.PurposeMeeting, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), c.ID)
	assert.Equal(t, "2025-03-10", c.SlotDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepo_Resolve_CreatesWhenAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectContainerByKey)).
		WithArgs("2025-03-10", "DIKSHA").
		WillReturnError(errNoRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO containers (slot_date, purpose, capacity_limit) VALUES (?, ?, ?)`)).
		WithArgs("2025-03-10", "DIKSHA", uint32(20)).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectContainerByKey)).
		WithArgs("2025-03-10", "DIKSHA").
		WillReturnRows(containerRow(9, "2025-03-10", model.PurposeDiksha, 20))

	repo := NewContainerRepo(db)
	c, err := repo.Resolve(context.Background(), "2025-03-10", model.PurposeDiksha, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), c.ID)
	assert.Equal(t, uint32(20), c.CapacityLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepo_Resolve_LosesInsertRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A concurrent request inserted the row between our select and insert;
	// the duplicate-key failure must be swallowed and the winner's row read.
	mock.ExpectQuery(regexp.QuoteMeta(selectContainerByKey)).
		WithArgs("2025-03-10", "MEETING").
		WillReturnError(errNoRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO containers`)).
		WithArgs("2025-03-10", "MEETING", uint32(20)).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '2025-03-10-MEETING' for key 'uq_containers_day_purpose'"))
	mock.ExpectQuery(regexp.QuoteMeta(selectContainerByKey)).
		WithArgs("2025-03-10", "MEETING").
		WillReturnRows(containerRow(4, "2025-03-10", model.PurposeMeeting, 20))

	repo := NewContainerRepo(db)
	c, err := repo.Resolve(context.Background(), "2025-03-10", model.PurposeMeeting, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepo_Resolve_RejectsBadKey(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContainerRepo(db)
	_, err = repo.Resolve(context.Background(), "2025-3-10", model.PurposeMeeting, 20)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = repo.Resolve(context.Background(), "2025-03-10", model.Purpose("PARTY"), 20)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestContainerRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ?`)).
		WithArgs(uint64(42)).
		WillReturnError(errNoRows())

	repo := NewContainerRepo(db)
	_, err = repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrContainerNotFound)
}
