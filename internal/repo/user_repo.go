package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/dailypen/internal/model"
	"github.com/xxxsen/dailypen/internal/pkg/dbutil"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

const userTable = "users"

var userColumns = []string{"id", "name", "email", "password_hash", "role", "otp_hash", "otp_expires_at", "ctime", "mtime"}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":             user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"password_hash":  user.PasswordHash,
		"role":           user.Role,
		"otp_hash":       user.OtpHash,
		"otp_expires_at": user.OtpExpiresAt,
		"ctime":          user.Ctime,
		"mtime":          user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(userTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	users, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, appErr.ErrNotFound
	}
	return users[0], nil
}

// ListUsers returns every account, newest first.
func (r *UserRepo) ListUsers(ctx context.Context) ([]*model.User, error) {
	return r.query(ctx, map[string]interface{}{"_orderby": "ctime desc"})
}

func (r *UserRepo) query(ctx context.Context, where map[string]interface{}) ([]*model.User, error) {
	sqlStr, args, err := builder.BuildSelect(userTable, where, userColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var users []*model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
			&user.OtpHash, &user.OtpExpiresAt, &user.Ctime, &user.Mtime); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) UpdateName(ctx context.Context, userID, name string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate(userTable, map[string]interface{}{"id": userID}, map[string]interface{}{
		"name":  name,
		"mtime": mtime,
	})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.ExpectFound(result)
}

func (r *UserRepo) DeleteUser(ctx context.Context, userID string) error {
	sqlStr, args, err := builder.BuildDelete(userTable, map[string]interface{}{"id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.ExpectFound(result)
}

// SetOTP stores a new challenge only while the row still carries prevHash.
func (r *UserRepo) SetOTP(ctx context.Context, userID, prevHash, otpHash string, expiresAt, mtime int64) error {
	where := map[string]interface{}{"id": userID, "otp_hash": prevHash}
	update := map[string]interface{}{
		"otp_hash":       otpHash,
		"otp_expires_at": expiresAt,
		"mtime":          mtime,
	}
	return r.conditionalUpdate(ctx, where, update)
}

// ClearOTP removes the challenge only while the row still carries otpHash.
func (r *UserRepo) ClearOTP(ctx context.Context, userID, otpHash string, mtime int64) error {
	where := map[string]interface{}{"id": userID, "otp_hash": otpHash}
	update := map[string]interface{}{
		"otp_hash":       "",
		"otp_expires_at": 0,
		"mtime":          mtime,
	}
	return r.conditionalUpdate(ctx, where, update)
}

func (r *UserRepo) conditionalUpdate(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate(userTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.ExpectOne(result)
}
