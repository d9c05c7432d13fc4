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

type FriendRepository struct {
	collection *mongo.Collection
}

func NewFriendRepository(db *mongo.Database) *FriendRepository {
	return &FriendRepository{
		collection: db.Collection("friend_requests"),
	}
}

// EnsureIndexes creates the unique pair index backing CreateIfAbsent and the
// lookup indexes for both sides of a request.
func (r *FriendRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "sender_data.id", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_data.id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create friend_requests indexes: %w", err)
	}
	return nil
}

// CountBetween counts the requests keyed a_b or b_a.
func (r *FriendRepository) CountBetween(ctx context.Context, userA, userB string) (int64, error) {
	filter := bson.M{"_id": bson.M{"$in": []string{
		models.FriendRequestID(userA, userB),
		models.FriendRequestID(userB, userA),
	}}}

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count friend requests: %w", err)
	}
	return n, nil
}

// CreateIfAbsent inserts req. The unique pair_key index turns a concurrent
// duplicate, from either direction, into a duplicate key error.
func (r *FriendRepository) CreateIfAbsent(ctx context.Context, req *models.FriendRequest) error {
	req.PairKey = models.PairKey(req.SenderData.ID, req.ReceiverData.ID)

	_, err := r.collection.InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		logrus.WithField("requestID", req.ID).Warn("Friend request insert lost to an existing pair")
		return apperrors.Conflict("Friend request already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to send friend request: %w", err)
	}
	return nil
}

func (r *FriendRepository) GetByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("friend request %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find friend request: %w", err)
	}
	return &request, nil
}

// GetByUser returns every request sent or received by userID, oldest first.
func (r *FriendRepository) GetByUser(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"sender_data.id": userID},
			{"receiver_data.id": userID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find friend requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.FriendRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode friend requests: %w", err)
	}
	return requests, nil
}

// TransitionStatus applies a guarded status change. A record that exists but
// no longer matches the guard yields a conflict.
func (r *FriendRepository) TransitionStatus(ctx context.Context, id, receiverID string, from, to models.FriendRequestStatus, at time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": from, "receiver_data.id": receiverID},
		bson.M{"$set": bson.M{"status": to, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.Conflict("friend request %s is no longer %s", id, from)
	}
	return nil
}
