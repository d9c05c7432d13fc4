package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountRepository stores credentials and password-reset state.
type AccountRepository struct {
	collection *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		collection: db.Collection("accounts"),
	}
}

func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reset_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create accounts indexes: %w", err)
	}
	return nil
}

// CreateAccount inserts a new account. A second account with the same email
// is rejected with the provider's email-already-in-use error.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := r.collection.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Auth(apperrors.CodeEmailInUse, "email already in use")
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to insert account into database")
		return fmt.Errorf("failed to insert account: %w", err)
	}

	logrus.WithField("userID", account.ID).Info("Account created")
	return nil
}

// GetAccountByEmail retrieves an account by email.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetAccountByResetToken retrieves the account holding a password-reset code.
func (r *AccountRepository) GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"reset_token": token})
}

// UpdateAccount sets the given fields and refreshes updated_at.
func (r *AccountRepository) UpdateAccount(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID": id,
			"error":  err,
		}).Error("Failed to update account")
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("account %s not found", id)
	}
	return nil
}

// ConsumeResetToken sets the new password hash and clears the reset code, but
// only if the account still holds token. Of two concurrent resets with the
// same code exactly one matches.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id, token, hashedPassword string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "reset_token": token},
		bson.M{
			"$set":   bson.M{"hashed_password": hashedPassword, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"reset_token": "", "reset_token_exp": ""},
		},
	)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID": id,
			"error":  err,
		}).Error("Failed to reset password")
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("reset code for account %s not found", id)
	}
	return nil
}

// DeleteAccount removes the account. Deleting a missing account is not an error.
func (r *AccountRepository) DeleteAccount(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID": id,
			"error":  err,
		}).Error("Failed to delete account")
		return fmt.Errorf("failed to delete account: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"userID":  id,
		"deleted": result.DeletedCount,
	}).Info("Account deleted")
	return nil
}

// ClearExpiredResetTokens removes reset codes whose expiry is before now.
func (r *AccountRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"reset_token":     bson.M{"$exists": true, "$ne": ""},
			"reset_token_exp": bson.M{"$lte": now},
		},
		bson.M{"$unset": bson.M{"reset_token": "", "reset_token_exp": ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}
