package repository

import (
	"context"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/models"
)

// UserStore is the user directory: public profiles keyed by account id.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CountByUsername(ctx context.Context, username string) (int64, error)
	DeleteUser(ctx context.Context, id string) error
}

// AccountStore holds identity-provider credentials.
//
// ConsumeResetToken replaces the password only while the account still holds
// token, clearing it in the same write. A token already consumed yields
// apperrors.ErrNotFound.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error)
	UpdateAccount(ctx context.Context, id string, fields map[string]interface{}) error
	ConsumeResetToken(ctx context.Context, id, token, hashedPassword string) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	DeleteAccount(ctx context.Context, id string) error
}

// FriendRequestStore persists friend requests.
//
// CreateIfAbsent must be atomic on the request's PairKey: of any number of
// concurrent creations for the same two accounts, in either direction,
// at most one succeeds and the others fail with apperrors.ErrConflict.
//
// TransitionStatus writes only status and updated_at, and only when the
// record is currently in status from and addressed to receiverID.
type FriendRequestStore interface {
	CountBetween(ctx context.Context, userA, userB string) (int64, error)
	CreateIfAbsent(ctx context.Context, req *models.FriendRequest) error
	GetByID(ctx context.Context, id string) (*models.FriendRequest, error)
	GetByUser(ctx context.Context, userID string) ([]models.FriendRequest, error)
	TransitionStatus(ctx context.Context, id, receiverID string, from, to models.FriendRequestStatus, at time.Time) error
}
