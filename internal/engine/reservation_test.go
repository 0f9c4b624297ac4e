package engine

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
	"github.com/iliyamo/intake-calendar/internal/repository"
)

func TestValidateOccupyDate(t *testing.T) {
	meeting := "2025-03-10"

	t.Run("same day allowed", func(t *testing.T) {
		assert.NoError(t, validateOccupyDate(meeting, "2025-03-10"))
	})

	t.Run("later day allowed", func(t *testing.T) {
		assert.NoError(t, validateOccupyDate(meeting, "2025-04-01"))
	})

	t.Run("missing date", func(t *testing.T) {
		assert.ErrorIs(t, validateOccupyDate(meeting, ""), repository.ErrOccupyRequired)
	})

	t.Run("malformed date", func(t *testing.T) {
		assert.ErrorIs(t, validateOccupyDate(meeting, "2025-3-10"), repository.ErrInvalidKey)
	})

	t.Run("earlier day rejected with meeting date attached", func(t *testing.T) {
		err := validateOccupyDate(meeting, "2025-03-09")
		var obm *repository.OccupyBeforeMeetingError
		assert.True(t, errors.As(err, &obm))
		assert.Equal(t, meeting, obm.MeetingDate)
	})

	t.Run("earlier year rejected", func(t *testing.T) {
		err := validateOccupyDate(meeting, "2024-12-31")
		var obm *repository.OccupyBeforeMeetingError
		assert.True(t, errors.As(err, &obm))
	})
}

func TestReserveFutureSeat_ReReserveReleasesOldBooking(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	// The candidate already holds a reservation for 2025-03-15; booking
	// 2025-03-20 instead must free the old seat in the same transaction,
	// before the candidate's occupy date is overwritten.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ?`)).
		WithArgs(uint64(3)).
		WillReturnRows(containerRows(3, "2025-03-10", model.PurposeMeeting, 20))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE slot_date = ? AND purpose = ?`)).
		WithArgs("2025-03-20", "DIKSHA").
		WillReturnRows(containerRows(9, "2025-03-20", model.PurposeDiksha, 20))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE container_id = ? AND lifecycle_status = ?`)).
		WithArgs(uint64(3), "PLACED", uint64(10)).
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(40, 3, 10, "SINGLE", nil, nil, "PLACED", "NONE", "2025-03-15", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE slot_date = ? AND purpose = ?`)).
		WithArgs("2025-03-15", "DIKSHA").
		WillReturnRows(containerRows(8, "2025-03-15", model.PurposeDiksha, 20))
	mock.ExpectQuery(regexp.QuoteMeta(`occupied_date = ? AND lifecycle_status = 'RESERVED'`)).
		WithArgs(uint64(8), "2025-03-15", uint64(10)).
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(50, 8, 10, "SINGLE", nil, nil, "RESERVED", "NONE", "2025-03-15", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE assignments SET lifecycle_status = ? WHERE lifecycle_status = ? AND id IN (?)`)).
		WithArgs("EXITED", "RESERVED", uint64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(9)).
		WillReturnRows(containerRows(9, "2025-03-20", model.PurposeDiksha, 20))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM persons WHERE id IN (?)`)).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows(personColumns()).
			AddRow(10, "Asha", "FEMALE", "addr", "TODAY", "PLACED", 3, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM assignments`)).
		WithArgs(uint64(9)).
		WillReturnRows(countRows(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO assignments`)).
		WithArgs(uint64(9), uint64(10), "SINGLE", nil, nil, "RESERVED", "2025-03-20").
		WillReturnResult(sqlmock.NewResult(60, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM assignments WHERE id = ?`)).
		WithArgs(uint64(60)).
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(60, 9, 10, "SINGLE", nil, nil, "RESERVED", "NONE", "2025-03-20", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE assignments SET occupied_date = ? WHERE id IN (?)`)).
		WithArgs("2025-03-20", uint64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_log`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := eng.ReserveFutureSeat(context.Background(), Meta{Actor: "desk"}, 3, []uint64{10}, model.GroupSingle, "2025-03-20")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, uint64(60), created[0].ID)
	assert.Equal(t, model.StatusReserved, created[0].LifecycleStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
