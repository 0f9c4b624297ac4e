package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/intake-calendar/internal/repository"
)

func newTestContext(t *testing.T, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteErr_Taxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid key", repository.ErrInvalidKey, http.StatusBadRequest, "invalid_key"},
		{"occupy required", repository.ErrOccupyRequired, http.StatusBadRequest, "occupy_required"},
		{"housefull", repository.ErrHousefull, http.StatusConflict, "housefull"},
		{"locked qualified", repository.ErrLockedQualified, http.StatusLocked, "locked_qualified"},
		{"reservation missing", repository.ErrReservationMissing, http.StatusConflict, "reservation_missing"},
		{"not meeting candidate", repository.ErrNotMeetingCandidate, http.StatusConflict, "not_meeting_candidate"},
		{"not placed", repository.ErrNotPlaced, http.StatusConflict, "not_placed"},
		{"qualify not allowed", repository.ErrQualifyNotAllowed, http.StatusConflict, "qualify_not_allowed"},
		{"container not found", repository.ErrContainerNotFound, http.StatusNotFound, "container_not_found"},
		{"assignment not found", repository.ErrAssignmentNotFound, http.StatusNotFound, "assignment_not_found"},
		{"person not found", repository.ErrPersonNotFound, http.StatusNotFound, "person_not_found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(t, nil)
			require.NoError(t, writeErr(c, tc.err))
			assert.Equal(t, tc.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body["error"])
		})
	}
}

func TestWriteErr_OccupyBeforeMeetingCarriesDate(t *testing.T) {
	c, rec := newTestContext(t, nil)
	err := &repository.OccupyBeforeMeetingError{MeetingDate: "2025-03-10"}
	require.NoError(t, writeErr(c, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "occupy_before_meeting", body["error"])
	assert.Equal(t, "2025-03-10", body["meeting_date"])
}

func TestMeta_ActorAndIdempotencyKey(t *testing.T) {
	t.Run("header actor wins", func(t *testing.T) {
		c, _ := newTestContext(t, map[string]string{
			"X-Actor":         "reception-desk",
			"Idempotency-Key": "tok-123",
		})
		c.Set("user_id", "user-7")
		m := meta(c)
		assert.Equal(t, "reception-desk", m.Actor)
		assert.Equal(t, "tok-123", m.IdemKey)
	})

	t.Run("falls back to jwt subject", func(t *testing.T) {
		c, _ := newTestContext(t, nil)
		c.Set("user_id", "user-7")
		m := meta(c)
		assert.Equal(t, "user-7", m.Actor)
		assert.Empty(t, m.IdemKey)
	})

	t.Run("system when anonymous", func(t *testing.T) {
		c, _ := newTestContext(t, nil)
		assert.Equal(t, "system", meta(c).Actor)
	})
}
