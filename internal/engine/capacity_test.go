package engine

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/intake-calendar/internal/model"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, nil, 20), mock
}

func containerRows(id uint64, day string, purpose model.Purpose, limit uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "slot_date", "purpose", "capacity_limit", "created_at"}).
		AddRow(id, day, string(purpose), limit, time.Now())
}

func countRows(n uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestPreviewAdmit(t *testing.T) {
	cases := []struct {
		name      string
		limit     uint32
		used      uint32
		requested uint32
		admit     bool
	}{
		{"plenty of room", 20, 5, 2, true},
		{"exact fit", 20, 18, 2, true},
		{"one over", 20, 19, 2, false},
		{"already full", 20, 20, 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, mock := newTestEngine(t)
			mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ?`)).
				WithArgs(uint64(3)).
				WillReturnRows(containerRows(3, "2025-03-10", model.PurposeMeeting, tc.limit))
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM assignments`)).
				WithArgs(uint64(3)).
				WillReturnRows(countRows(tc.used))

			p, err := eng.PreviewAdmit(context.Background(), 3, tc.requested)
			require.NoError(t, err)
			assert.Equal(t, tc.admit, p.Admit)
			assert.Equal(t, tc.used, p.Used)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPlaceGroup_RejectsBadInput(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	meta := Meta{Actor: "reception"}

	_, err := eng.PlaceGroup(ctx, meta, 1, []uint64{10}, model.GroupCouple, nil)
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "couple of one")

	_, err = eng.PlaceGroup(ctx, meta, 1, []uint64{10, 10}, model.GroupCouple, nil)
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "duplicate person")

	_, err = eng.PlaceGroup(ctx, meta, 1, []uint64{10}, model.GroupFamily, nil)
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "family of one")

	_, err = eng.PlaceGroup(ctx, meta, 1, []uint64{10, 11}, model.GroupCouple, []string{"HEAD"})
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "roles length mismatch")
}

func TestPlaceGroup_HousefullRollsBack(t *testing.T) {
	eng, mock := newTestEngine(t)

	// Container has 19 of 20 seats used; a couple does not fit and the
	// whole transaction must roll back with no inserts attempted.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(3)).
		WillReturnRows(containerRows(3, "2025-03-10", model.PurposeMeeting, 20))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM persons WHERE id IN (?,?)`)).
		WithArgs(uint64(10), uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "gender", "address", "pool", "pool_state", "current_container_id", "updated_at"}).
			AddRow(10, "A", "MALE", "addr", "TODAY", "ACTIVE_UNPLACED", nil, time.Now()).
			AddRow(11, "B", "FEMALE", "addr", "TODAY", "ACTIVE_UNPLACED", nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM assignments`)).
		WithArgs(uint64(3)).
		WillReturnRows(countRows(19))
	mock.ExpectRollback()

	_, err := eng.PlaceGroup(context.Background(), Meta{Actor: "reception"}, 3, []uint64{10, 11}, model.GroupCouple, nil)
	assert.ErrorIs(t, err, repository.ErrHousefull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceGroup_MissingPersonRollsBack(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(3)).
		WillReturnRows(containerRows(3, "2025-03-10", model.PurposeMeeting, 20))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM persons WHERE id IN (?)`)).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "gender", "address", "pool", "pool_state", "current_container_id", "updated_at"}))
	mock.ExpectRollback()

	_, err := eng.PlaceGroup(context.Background(), Meta{Actor: "reception"}, 3, []uint64{99}, model.GroupSingle, nil)
	assert.ErrorIs(t, err, repository.ErrPersonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarize_RejectsBadRange(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Summarize(ctx, "2025-03-31", "2025-03-01", "MEETING")
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "inverted range")

	_, err = eng.Summarize(ctx, "2025-3-01", "2025-03-31", "MEETING")
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "malformed from")

	_, err = eng.Summarize(ctx, "2025-03-01", "2025-03-31", "PARTY")
	assert.ErrorIs(t, err, repository.ErrInvalidKey, "unknown purpose")
}
