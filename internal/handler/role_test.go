package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/repository"
)

var roleCols = []string{"id", "role_name", "description", "is_system",
	"last_accessed_by", "created_at", "updated_at", "user_count"}

func newRoleFixture(t *testing.T) (*RoleHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	roles := repository.NewRoleRepo(db)
	users := repository.NewUserRepo(db)
	engine := permission.NewEngine(repository.NewModuleRepo(db), repository.NewPermissionRepo(db))
	return NewRoleHandler(roles, users, engine), mock
}

func deleteRoleCtx(t *testing.T, id string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/roles/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/roles/:id")
	c.SetParamNames("id")
	c.SetParamValues(id)
	// Superadmin identity skips the matrix lookup, keeping the test focused
	// on the deletion guards.
	c.Set(ContextUserKey, &auth.Claims{ID: 1, RoleID: 1, RoleName: "superadmin"})
	return c, rec
}

func TestDeleteRoleRejectsSystemRole(t *testing.T) {
	h, mock := newRoleFixture(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .+ FROM roles r`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow(1, "superadmin", nil, true, nil, now, now, 1))

	c, rec := deleteRoleCtx(t, "1")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "System roles cannot be deleted", env.Message)
}

func TestDeleteRoleRejectsAssignedRole(t *testing.T) {
	h, mock := newRoleFixture(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .+ FROM roles r`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow(5, "teacher", nil, false, nil, now, now, 12))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role_id=`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))

	c, rec := deleteRoleCtx(t, "5")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Cannot delete role: assigned to users", env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRoleSucceedsWhenUnassigned(t *testing.T) {
	h, mock := newRoleFixture(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .+ FROM roles r`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow(5, "teacher", nil, false, nil, now, now, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role_id=`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE roles SET deleted_at=`).
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := deleteRoleCtx(t, "5")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Role deleted successfully", env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionDeniedEnvelope(t *testing.T) {
	h, mock := newRoleFixture(t)

	// An authenticated user whose role has no permission row for 'roles'.
	mock.ExpectQuery(`(?s)SELECT .+ FROM modules`).
		WithArgs("roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "module_key", "module_name", "is_system", "status", "created_at", "updated_at"}).
			AddRow(2, "roles", "Roles", true, "active", time.Now(), time.Now()))
	mock.ExpectQuery(`(?s)SELECT .+ FROM module_permissions`).
		WithArgs(9, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/roles/5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/roles/:id")
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set(ContextUserKey, &auth.Claims{ID: 7, RoleID: 9, RoleName: "clerk"})

	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Permission denied for roles → delete", env.Message)
}
