package models

import (
	"sort"
	"strings"
	"time"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// Valid reports whether s is one of the three known statuses.
func (s FriendRequestStatus) Valid() bool {
	switch s {
	case FriendRequestPending, FriendRequestAccepted, FriendRequestRejected:
		return true
	}
	return false
}

// CanTransition reports whether a request may move from one status to another.
// Only pending requests can be answered, and only with accepted or rejected.
func CanTransition(from, to FriendRequestStatus) bool {
	return from == FriendRequestPending && (to == FriendRequestAccepted || to == FriendRequestRejected)
}

// FriendRequestUserData is a profile snapshot taken when the request is created.
// It is not refreshed when the account's profile changes later.
type FriendRequestUserData struct {
	ID          string `bson:"id" json:"id"`
	Username    string `bson:"username" json:"username"`
	DisplayName string `bson:"display_name" json:"display_name"`
	AvatarURL   string `bson:"avatar_url" json:"avatar_url"`
}

type FriendRequest struct {
	ID           string                `bson:"_id" json:"id"`
	SenderData   FriendRequestUserData `bson:"sender_data" json:"sender_data"`
	ReceiverData FriendRequestUserData `bson:"receiver_data" json:"receiver_data"`
	Status       FriendRequestStatus   `bson:"status" json:"status"`
	PairKey      string                `bson:"pair_key" json:"-"`
	CreatedAt    time.Time             `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at" json:"updated_at"`
}

// FriendRequestID is the ordered record key: sender first, receiver second.
func FriendRequestID(senderID, receiverID string) string {
	return senderID + "_" + receiverID
}

// PairKey is the order-independent key of two accounts.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// Involves reports whether userID is the sender or the receiver.
func (r *FriendRequest) Involves(userID string) bool {
	return r.SenderData.ID == userID || r.ReceiverData.ID == userID
}
