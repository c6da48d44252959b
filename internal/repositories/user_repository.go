package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/snapgram/backend/internal/models"
)

// UserRepository defines the interface for user data operations.
//
// The follower/following/followRequests mutators are single-document
// atomic updates ($pull/$push/$addToSet with a conditional match); the
// follow workflow composes them pairwise and compensates when the
// second side fails. Each returns whether the document changed, which
// makes the callers idempotent.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	SearchUsers(ctx context.Context, prefix string, limit int64) ([]models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, set bson.M) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	PullUserFromAllRelations(ctx context.Context, id primitive.ObjectID) error

	PushFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (bool, error)
	PullFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (bool, error)
	AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error)
	RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error)
	AddFollowing(ctx context.Context, userID, followeeID primitive.ObjectID) (bool, error)
	RemoveFollowing(ctx context.Context, userID, followeeID primitive.ObjectID) (bool, error)

	PushRefreshToken(ctx context.Context, userID primitive.ObjectID, token models.RefreshToken) error
	RemoveRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) (bool, error)
}

// MongoUserRepository implements UserRepository on MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser inserts a new user document
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.FollowRequests == nil {
		user.FollowRequests = []models.FollowRequest{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// GetUserByID retrieves a user by id
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by their unique username
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their unique email
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsersByIDs retrieves a batch of users by id
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers does a case-insensitive username prefix search
func (r *MongoUserRepository) SearchUsers(ctx context.Context, prefix string, limit int64) ([]models.User, error) {
	pattern := "^" + regexp.QuoteMeta(prefix)
	opts := options.Find().SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{
		"username": bson.M{"$regex": pattern, "$options": "i"},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile applies a partial $set on the user document
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now()
	res, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user document
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// PullUserFromAllRelations removes id from every other user's
// followers, following and followRequests. Used by account deletion.
func (r *MongoUserRepository) PullUserFromAllRelations(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx, bson.M{}, bson.M{
		"$pull": bson.M{
			"followers":       id,
			"following":       id,
			"follow_requests": bson.M{"user": id},
		},
	})
	return err
}

// PushFollowRequest appends a pending request, guarded so at most one
// request per (requester, owner) pair can exist.
func (r *MongoUserRepository) PushFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": ownerID, "follow_requests.user": bson.M{"$ne": requesterID}},
		bson.M{"$push": bson.M{"follow_requests": models.FollowRequest{
			User:      requesterID,
			CreatedAt: time.Now(),
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("push follow request: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// PullFollowRequest removes the pending request from requesterID, if any
func (r *MongoUserRepository) PullFollowRequest(ctx context.Context, ownerID, requesterID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$pull": bson.M{"follow_requests": bson.M{"user": requesterID}}},
	)
	if err != nil {
		return false, fmt.Errorf("pull follow request: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// AddFollower adds followerID to the user's followers set
func (r *MongoUserRepository) AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateByID(ctx, userID,
		bson.M{"$addToSet": bson.M{"followers": followerID}})
	if err != nil {
		return false, fmt.Errorf("add follower: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// RemoveFollower removes followerID from the user's followers set
func (r *MongoUserRepository) RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateByID(ctx, userID,
		bson.M{"$pull": bson.M{"followers": followerID}})
	if err != nil {
		return false, fmt.Errorf("remove follower: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// AddFollowing adds followeeID to the user's following set
func (r *MongoUserRepository) AddFollowing(ctx context.Context, userID, followeeID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateByID(ctx, userID,
		bson.M{"$addToSet": bson.M{"following": followeeID}})
	if err != nil {
		return false, fmt.Errorf("add following: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// RemoveFollowing removes followeeID from the user's following set
func (r *MongoUserRepository) RemoveFollowing(ctx context.Context, userID, followeeID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateByID(ctx, userID,
		bson.M{"$pull": bson.M{"following": followeeID}})
	if err != nil {
		return false, fmt.Errorf("remove following: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// PushRefreshToken appends a refresh token hash to the user document
func (r *MongoUserRepository) PushRefreshToken(ctx context.Context, userID primitive.ObjectID, token models.RefreshToken) error {
	res, err := r.collection.UpdateByID(ctx, userID,
		bson.M{"$push": bson.M{"refresh_tokens": token}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// RemoveRefreshToken pulls a token hash; rotation removes the old hash
// first (the conditional match is the compare step) and pushes the new
// one only when the removal matched.
func (r *MongoUserRepository) RemoveRefreshToken(ctx context.Context, userID primitive.ObjectID, tokenHash string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID, "refresh_tokens.token_hash": tokenHash},
		bson.M{"$pull": bson.M{"refresh_tokens": bson.M{"token_hash": tokenHash}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
