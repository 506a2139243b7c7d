package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusflow/school-api/internal/permission"
	"github.com/campusflow/school-api/internal/repository"
)

func newStudentFixture(t *testing.T) (*StudentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := permission.NewEngine(repository.NewModuleRepo(db), repository.NewPermissionRepo(db))
	return NewStudentHandler(repository.NewStudentRepo(db), repository.NewSchoolRepo(db), engine), mock
}

func TestStudentIndexIsPubliclyReadable(t *testing.T) {
	h, mock := newStudentFixture(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT .+ FROM students`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "admission_number", "name",
			"class_name", "guardian_name", "guardian_phone", "status", "created_at", "updated_at"}).
			AddRow(1, 7, "ADM-001", "Ravi", "5A", nil, nil, "active", now, now))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// No identity attached: the public-read carve-out must still serve it.
	require.NoError(t, h.Index(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Students fetched successfully", env.Message)
}

func TestStudentCreateDeniedWithoutIdentity(t *testing.T) {
	h, _ := newStudentFixture(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students",
		strings.NewReader(`{"school_id":7,"name":"Ravi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "Permission denied for students → create", env.Message)
}
