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

func TestAdjustCapacity_RejectsZeroLimit(t *testing.T) {
	eng, mock := newTestEngine(t)

	err := eng.AdjustCapacity(context.Background(), Meta{Actor: "admin"}, 3, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustCapacity_ReplayedTokenShortCircuits(t *testing.T) {
	eng, mock := newTestEngine(t)

	// A seen token means the limit change already committed; no new
	// transaction is opened.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM idempotency_keys WHERE op_key = ?`)).
		WithArgs("tok-2").
		WillReturnRows(sqlmock.NewRows([]string{"op_key", "operation", "assignment_ids", "created_at"}).
			AddRow("tok-2", "adjust_capacity", "", time.Now()))

	err := eng.AdjustCapacity(context.Background(), Meta{Actor: "admin", IdemKey: "tok-2"}, 3, 30)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustCapacity_ClaimsTokenAndAudits(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM idempotency_keys WHERE op_key = ?`)).
		WithArgs("tok-2").
		WillReturnRows(sqlmock.NewRows([]string{"op_key", "operation", "assignment_ids", "created_at"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO idempotency_keys (op_key, operation, assignment_ids) VALUES (?, ?, '')`)).
		WithArgs("tok-2", "adjust_capacity").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM containers WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(3)).
		WillReturnRows(containerRows(3, "2025-03-10", model.PurposeMeeting, 20))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE containers SET capacity_limit = ? WHERE id = ?`)).
		WithArgs(uint32(30), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE idempotency_keys SET assignment_ids = ? WHERE op_key = ?`)).
		WithArgs("", "tok-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_log`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := eng.AdjustCapacity(context.Background(), Meta{Actor: "admin", IdemKey: "tok-2"}, 3, 30)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
