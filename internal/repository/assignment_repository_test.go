package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/intake-calendar/internal/model"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestAssignmentRepo_CountActiveTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM assignments`)).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	repo := NewAssignmentRepo(db)
	n, err := repo.CountActiveTx(context.Background(), tx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(17), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepo_UpdateLifecycleTx_ReportsShortCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Only one of two rows is still PLACED at write time; the caller
	// sees the short count and can abort the transition.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE assignments SET lifecycle_status = ? WHERE lifecycle_status = ? AND id IN (?,?)`)).
		WithArgs("EXITED", "PLACED", uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	repo := NewAssignmentRepo(db)
	n, err := repo.UpdateLifecycleTx(context.Background(), tx, []uint64{1, 2}, model.StatusPlaced, model.StatusExited)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepo_UpdateLifecycleTx_EmptyIDs(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAssignmentRepo(db)
	n, err := repo.UpdateLifecycleTx(context.Background(), nil, nil, model.StatusPlaced, model.StatusExited)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAssignmentRepo_MarkQualifiedTx_ConditionalOnPlaced(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE assignments SET lock_status = 'QUALIFIED'`)).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	repo := NewAssignmentRepo(db)
	n, err := repo.MarkQualifiedTx(context.Background(), tx, 5)
	require.NoError(t, err)
	assert.Zero(t, n, "row no longer PLACED must not be qualified")
	assert.NoError(t, mock.ExpectationsWereMet())
}
