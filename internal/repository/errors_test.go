package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// errNoRows is shared by the repository tests that simulate empty
// result sets.
func errNoRows() error { return sql.ErrNoRows }

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'PRIMARY'")))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", errors.New("Error 1062: Duplicate entry"))))
	assert.False(t, IsDuplicateKey(errors.New("Error 1213: Deadlock found")))
	assert.False(t, IsDuplicateKey(nil))
}

func TestOccupyBeforeMeetingError(t *testing.T) {
	err := &OccupyBeforeMeetingError{MeetingDate: "2025-03-10"}
	assert.Contains(t, err.Error(), "2025-03-10")

	var target *OccupyBeforeMeetingError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "2025-03-10", target.MeetingDate)
}
