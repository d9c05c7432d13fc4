package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/internal/realtime"
	"github.com/Dias221467/Chat_Manager/internal/repository"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"github.com/sirupsen/logrus"
)

// ChangeNotifier carries per-user change signals for friend requests.
type ChangeNotifier interface {
	Publish(ctx context.Context, userIDs ...string) error
	Subscribe(ctx context.Context, userID string) (realtime.Listener, error)
}

// ErrLiveUpdatesDisabled is returned by SubscribeToUserFriendRequests when the
// service was built without a ChangeNotifier.
var ErrLiveUpdatesDisabled = errors.New("live updates are not configured")

// FriendService is the friend request ledger.
type FriendService struct {
	friendRepo repository.FriendRequestStore
	userRepo   repository.UserStore
	notifier   ChangeNotifier
	now        func() time.Time
}

// NewFriendService creates a new FriendService. A nil notifier disables
// change signals and subscriptions.
func NewFriendService(friendRepo repository.FriendRequestStore, userRepo repository.UserStore, notifier ChangeNotifier) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *FriendService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// CreateFriendRequest sends a request from sender to the account registered
// under receiverUsername. The sender snapshot is stored as given.
func (s *FriendService) CreateFriendRequest(ctx context.Context, sender models.FriendRequestUserData, receiverUsername string) (*models.FriendRequest, error) {
	if strings.TrimSpace(sender.ID) == "" {
		return nil, apperrors.Validation("sender id is required")
	}
	username := validation.NormalizeUsername(receiverUsername)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}

	receiver, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if receiver.ID == sender.ID {
		return nil, apperrors.Validation("cannot send a friend request to yourself")
	}

	count, err := s.friendRepo.CountBetween(ctx, sender.ID, receiver.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.Conflict("Friend request already exists")
	}

	now := s.timestamp()
	request := &models.FriendRequest{
		ID:           models.FriendRequestID(sender.ID, receiver.ID),
		SenderData:   sender,
		ReceiverData: receiver.Snapshot(),
		Status:       models.FriendRequestPending,
		PairKey:      models.PairKey(sender.ID, receiver.ID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.friendRepo.CreateIfAbsent(ctx, request); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"requestID":  request.ID,
		"senderID":   sender.ID,
		"receiverID": receiver.ID,
	}).Info("Friend request created")

	s.notify(ctx, sender.ID, receiver.ID)
	return request, nil
}

// FetchUserFriendRequests returns every request the user sent or received.
func (s *FriendService) FetchUserFriendRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return s.friendRepo.GetByUser(ctx, userID)
}

// SubscribeToUserFriendRequests calls onChange with the user's full request
// list once, then again after changes. Bursts may be delivered once.
// Deliveries are sequential. The returned function stops the subscription and
// waits for an in-flight delivery; it must not be called from onChange.
// Cancelling ctx also stops the subscription.
func (s *FriendService) SubscribeToUserFriendRequests(ctx context.Context, userID string, onChange func([]models.FriendRequest)) (func(), error) {
	if s.notifier == nil {
		return nil, ErrLiveUpdatesDisabled
	}

	// listen before the first read so no change between the two is lost
	listener, err := s.notifier.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	initial, err := s.FetchUserFriendRequests(ctx, userID)
	if err != nil {
		listener.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer listener.Close()

		onChange(initial)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-listener.Changes():
				if !ok {
					return
				}
				requests, err := s.FetchUserFriendRequests(subCtx, userID)
				if err != nil {
					if subCtx.Err() != nil {
						return
					}
					logrus.WithError(err).WithField("userID", userID).Error("Failed to refresh friend requests")
					continue
				}
				onChange(requests)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// UpdateFriendRequest answers a pending request. Only its receiver may do so.
func (s *FriendService) UpdateFriendRequest(ctx context.Context, callerID, requestID string, status models.FriendRequestStatus) (*models.FriendRequest, error) {
	if status != models.FriendRequestAccepted && status != models.FriendRequestRejected {
		return nil, apperrors.Validation("status must be accepted or rejected")
	}

	request, err := s.friendRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.ReceiverData.ID != callerID {
		logrus.WithFields(logrus.Fields{
			"requestID": requestID,
			"callerID":  callerID,
		}).Warn("Friend request update by non-receiver")
		return nil, apperrors.Forbidden("only the receiver can respond to this request")
	}

	if !models.CanTransition(request.Status, status) {
		return nil, apperrors.Conflict("request already responded to")
	}

	now := s.timestamp()
	if err := s.friendRepo.TransitionStatus(ctx, requestID, callerID, request.Status, status, now); err != nil {
		return nil, err
	}

	request.Status = status
	request.UpdatedAt = now

	s.notify(ctx, request.SenderData.ID, request.ReceiverData.ID)
	return request, nil
}

func (s *FriendService) notify(ctx context.Context, userIDs ...string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, userIDs...); err != nil {
		logrus.WithError(err).WithField("users", userIDs).Warn("Failed to publish friend request change")
	}
}
