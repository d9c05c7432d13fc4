package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get by username", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u-1"},
			{Key: "email", Value: "bob@example.com"},
			{Key: "username", Value: "bob"},
			{Key: "display_name", Value: "Bob"},
			{Key: "avatar_url", Value: "http://blob/avatars/u-1"},
		}))

		user, err := repo.GetUserByUsername(ctx, "bob")
		require.NoError(mt, err)
		assert.Equal(mt, "u-1", user.ID)
		assert.Equal(mt, "Bob", user.DisplayName)
		assert.Equal(mt, "http://blob/avatars/u-1", user.AvatarURL)
	})

	mt.Run("unknown username", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		_, err := repo.GetUserByUsername(ctx, "ghost")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
		assert.EqualError(mt, err, "User with username ghost not found")
	})

	mt.Run("duplicate username", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error index: username_1",
		}))

		err := repo.CreateUser(ctx, &models.User{ID: "u-2", Username: "bob", CreatedAt: time.Now()})
		assert.ErrorIs(mt, err, apperrors.ErrConflict)
	})

	mt.Run("delete user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, repo.DeleteUser(ctx, "u-1"))
	})

	mt.Run("delete missing user", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.NoError(mt, repo.DeleteUser(ctx, "ghost"))
	})

	mt.Run("delete failure", func(mt *mtest.T) {
		repo := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11600, Message: "interrupted at shutdown", Name: "InterruptedAtShutdown",
		}))

		assert.Error(mt, repo.DeleteUser(ctx, "u-1"))
	})
}

func TestAccountRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("duplicate email is an auth error", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error index: email_1",
		}))

		err := repo.CreateAccount(ctx, &models.Account{ID: "u-1", Email: "a@example.com"})
		assert.ErrorIs(mt, err, apperrors.ErrAuth)
		assert.Equal(mt, apperrors.CodeEmailInUse, apperrors.CodeOf(err))
	})

	mt.Run("update unknown account", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.UpdateAccount(ctx, "missing", map[string]interface{}{"display_name": "x"})
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("clear expired reset tokens", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 2},
		))

		n, err := repo.ClearExpiredResetTokens(ctx, time.Now())
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)
	})

	mt.Run("consume reset token", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, repo.ConsumeResetToken(ctx, "u-1", "code", "hash"))
	})

	mt.Run("consume reset token already used", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.ConsumeResetToken(ctx, "u-1", "code", "hash")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})

	mt.Run("delete account", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, repo.DeleteAccount(ctx, "u-1"))
	})

	mt.Run("delete account failure", func(mt *mtest.T) {
		repo := NewAccountRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11600, Message: "interrupted at shutdown", Name: "InterruptedAtShutdown",
		}))

		assert.Error(mt, repo.DeleteAccount(ctx, "u-1"))
	})
}
