package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository handles database operations related to user profiles.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// EnsureIndexes makes usernames unique at the store level.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}
	return nil
}

// CreateUser stores the profile under the account id.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		logrus.WithField("username", user.Username).Warn("Username already taken")
		return apperrors.Conflict("username %s is already taken", user.Username)
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return fmt.Errorf("failed to insert user: %w", err)
	}

	logrus.WithField("userID", user.ID).Info("User inserted successfully")
	return nil
}

// GetUserByID retrieves a user by their account id.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "User not found")
}

// GetUserByUsername retrieves the single user owning username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, fmt.Sprintf("User with username %s not found", username))
}

// CountByUsername counts the profiles using username.
func (r *UserRepository) CountByUsername(ctx context.Context, username string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// DeleteUser removes the profile. Deleting a missing profile is not an error.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID": id,
			"error":  err,
		}).Error("Failed to delete user")
		return fmt.Errorf("failed to delete user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"userID":  id,
		"deleted": result.DeletedCount,
	}).Info("User deleted")
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, notFound string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("%s", notFound)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"filter": filter,
			"error":  err,
		}).Warn("Failed to find user")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
