package repo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/dailypen/internal/model"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

func newMockRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

func TestUserRepo_GetByEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	rows := sqlmock.NewRows(userColumns).
		AddRow("u1", "Ann", "a@x.com", "hash", "user", "otp", int64(1700), int64(1), int64(2))
	mock.ExpectQuery(`SELECT .+ FROM users WHERE .*email`).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	user, err := r.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, &model.User{
		ID: "u1", Name: "Ann", Email: "a@x.com", PasswordHash: "hash", Role: "user",
		OtpHash: "otp", OtpExpiresAt: 1700, Ctime: 1, Mtime: 2,
	}, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByIDNotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := r.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateConflict(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := r.Create(context.Background(), &model.User{ID: "u1", Email: "a@x.com"})
	require.ErrorIs(t, err, appErr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetOTPConditional(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE users SET .+ WHERE`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, r.SetOTP(context.Background(), "u1", "", "h1", 1000, 1))

	mock.ExpectExec(`UPDATE users SET .+ WHERE`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := r.SetOTP(context.Background(), "u1", "stale", "h2", 1000, 1)
	require.ErrorIs(t, err, appErr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ClearOTPPropagatesDriverError(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE users SET .+ WHERE`).WillReturnError(sql.ErrConnDone)

	err := r.ClearOTP(context.Background(), "u1", "h1", 1)
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ListUsersNewestFirst(t *testing.T) {
	r, mock := newMockRepo(t)
	rows := sqlmock.NewRows(userColumns).
		AddRow("u2", "Bob", "b@x.com", "hash", "user", "", int64(0), int64(20), int64(20)).
		AddRow("u1", "Ann", "a@x.com", "hash", "admin", "", int64(0), int64(10), int64(10))
	mock.ExpectQuery(`(?i)SELECT .+ FROM users .*ORDER BY ctime desc`).WillReturnRows(rows)

	users, err := r.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "u2", users[0].ID)
	require.Equal(t, model.RoleAdmin, users[1].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteUser(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM users WHERE`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, r.DeleteUser(context.Background(), "u1"))

	mock.ExpectExec(`DELETE FROM users WHERE`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, r.DeleteUser(context.Background(), "missing"), appErr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateName(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE users SET .+ WHERE`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, r.UpdateName(context.Background(), "u1", "Ann B", 5))

	mock.ExpectExec(`UPDATE users SET .+ WHERE`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, r.UpdateName(context.Background(), "missing", "x", 5), appErr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
