package repo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/dailypen/internal/config"
	"github.com/xxxsen/dailypen/internal/db"
	"github.com/xxxsen/dailypen/internal/model"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

func TestMongoUserRepo_OTPLifecycle(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping mongo test")
	}
	ctx := context.Background()
	client, database, err := db.OpenMongo(ctx, config.MongoConfig{URI: uri, Database: "dailypen_test"})
	require.NoError(t, err)
	defer func() {
		_ = database.Drop(ctx)
		_ = client.Disconnect(ctx)
	}()
	require.NoError(t, db.EnsureMongoIndexes(ctx, database))

	r := NewMongoUserRepo(database)
	require.NoError(t, r.Create(ctx, &model.User{ID: "u1", Email: "a@x.com", Role: model.RoleUser}))
	require.ErrorIs(t, r.Create(ctx, &model.User{ID: "u2", Email: "a@x.com"}), appErr.ErrConflict)

	require.NoError(t, r.SetOTP(ctx, "u1", "", "h1", 100, 1))
	require.ErrorIs(t, r.SetOTP(ctx, "u1", "", "h2", 100, 1), appErr.ErrConflict)

	user, err := r.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "h1", user.OtpHash)
	require.Equal(t, int64(100), user.OtpExpiresAt)

	require.NoError(t, r.ClearOTP(ctx, "u1", "h1", 2))
	user, err = r.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.False(t, user.HasOTP())

	_, err = r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, r.Create(ctx, &model.User{ID: "u2", Email: "b@x.com", Role: model.RoleUser, Ctime: 5}))
	users, err := r.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "u2", users[0].ID)

	require.NoError(t, r.UpdateName(ctx, "u2", "Bob", 6))
	user, err = r.GetByID(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, "Bob", user.Name)

	require.NoError(t, r.DeleteUser(ctx, "u2"))
	require.ErrorIs(t, r.DeleteUser(ctx, "u2"), appErr.ErrNotFound)
	require.ErrorIs(t, r.UpdateName(ctx, "u2", "x", 7), appErr.ErrNotFound)
}
