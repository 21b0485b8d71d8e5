package repo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xxxsen/dailypen/internal/model"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

// MongoUserRepo keeps credential records in the "users" collection. Cleared OTP
// fields are $unset rather than zeroed.
type MongoUserRepo struct {
	coll *mongo.Collection
}

func NewMongoUserRepo(database *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: database.Collection(userTable)}
}

func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every account, newest first.
func (r *MongoUserRepo) ListUsers(ctx context.Context) ([]*model.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "ctime", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var users []*model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepo) UpdateName(ctx context.Context, userID, name string, mtime int64) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"name": name, "mtime": mtime}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) DeleteUser(ctx context.Context, userID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) SetOTP(ctx context.Context, userID, prevHash, otpHash string, expiresAt, mtime int64) error {
	filter := bson.M{"_id": userID, "otp_hash": otpHashFilter(prevHash)}
	update := bson.M{"$set": bson.M{
		"otp_hash":       otpHash,
		"otp_expires_at": expiresAt,
		"mtime":          mtime,
	}}
	return r.updateOne(ctx, filter, update)
}

func (r *MongoUserRepo) ClearOTP(ctx context.Context, userID, otpHash string, mtime int64) error {
	filter := bson.M{"_id": userID, "otp_hash": otpHashFilter(otpHash)}
	update := bson.M{
		"$unset": bson.M{"otp_hash": "", "otp_expires_at": ""},
		"$set":   bson.M{"mtime": mtime},
	}
	return r.updateOne(ctx, filter, update)
}

func (r *MongoUserRepo) updateOne(ctx context.Context, filter, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return appErr.ErrConflict
	}
	return nil
}

// otpHashFilter matches a missing field when hash is empty.
func otpHashFilter(hash string) interface{} {
	if hash == "" {
		return bson.M{"$in": bson.A{nil, ""}}
	}
	return hash
}
