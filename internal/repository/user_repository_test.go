package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateRefreshTokenSwapsMatchingToken(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET refresh_token=`).
		WithArgs("next-token", "1.2.3.4", 42, "old-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.RotateRefreshToken(context.Background(), 42, "old-token", "next-token", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenRejectsStaleToken(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	// The stored token no longer matches, so the conditional update hits
	// zero rows and the rotation loses.
	mock.ExpectExec(`UPDATE users SET refresh_token=`).
		WithArgs("next-token", "1.2.3.4", 42, "stale-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.RotateRefreshToken(context.Background(), 42, "stale-token", "next-token", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordLoginResetsAttempts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET refresh_token=.+login_attempts=0`).
		WithArgs("fresh-token", "1.2.3.4", 42).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordLogin(context.Background(), 42, "fresh-token", "1.2.3.4"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
