package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithRole(t *testing.T, role any, allowed ...string) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, RequireRole(allowed...)(next)(c))
	return rec.Code
}

func TestRequireRole(t *testing.T) {
	assert.Equal(t, http.StatusOK, runWithRole(t, "ADMIN", "ADMIN"))
	assert.Equal(t, http.StatusForbidden, runWithRole(t, "STAFF", "ADMIN"))
	assert.Equal(t, http.StatusForbidden, runWithRole(t, nil, "ADMIN"))
	assert.Equal(t, http.StatusForbidden, runWithRole(t, 42, "ADMIN"))
	assert.Equal(t, http.StatusOK, runWithRole(t, "STAFF", "ADMIN", "STAFF"))
}

func TestActor(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Actor", " front-desk ")
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "front-desk", Actor(c))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	c.Set("user_id", "admin-1")
	assert.Equal(t, "admin-1", Actor(c))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "system", Actor(c))
}
