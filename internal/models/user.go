package models

import "time"

// User is the public profile of an account, keyed by the identity provider's account id.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	Username    string    `bson:"username" json:"username"`
	DisplayName string    `bson:"display_name" json:"display_name"`
	AvatarURL   string    `bson:"avatar_url" json:"avatar_url"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Snapshot returns the denormalized profile fields embedded in friend requests.
func (u *User) Snapshot() FriendRequestUserData {
	return FriendRequestUserData{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// Account is the identity-provider record. It never leaves the service layer.
type Account struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"hashed_password"`
	DisplayName    string    `bson:"display_name"`
	PhotoURL       string    `bson:"photo_url"`
	ResetToken     string    `bson:"reset_token,omitempty"`
	ResetTokenExp  time.Time `bson:"reset_token_exp,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

// Session identifies the authenticated caller of a request.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
