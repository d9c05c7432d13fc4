// Package memory is an in-process document store with the same semantics as
// the MongoDB repositories. It backs STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
)

// Store keeps users, accounts and friend requests in maps guarded by one mutex.
// Records are copied on the way in and out, so callers never share memory
// with the store.
type Store struct {
	mu sync.RWMutex

	users       map[string]models.User
	usernames   map[string]string
	accounts    map[string]models.Account
	emails      map[string]string
	requests    map[string]models.FriendRequest
	pairs       map[string]string
	insertOrder map[string]int
	seq         int
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]models.User),
		usernames:   make(map[string]string),
		accounts:    make(map[string]models.Account),
		emails:      make(map[string]string),
		requests:    make(map[string]models.FriendRequest),
		pairs:       make(map[string]string),
		insertOrder: make(map[string]int),
	}
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[user.Username]; taken {
		return apperrors.Conflict("username %s is already taken", user.Username)
	}
	if _, exists := s.users[user.ID]; exists {
		return apperrors.Conflict("user %s already exists", user.ID)
	}
	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("User not found")
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, apperrors.NotFound("User with username %s not found", username)
	}
	user := s.users[id]
	return &user, nil
}

func (s *Store) CountByUsername(ctx context.Context, username string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.usernames[username]; ok {
		return 1, nil
	}
	return 0, nil
}

// UpdateUserProfile replaces a stored profile. The HTTP surface has no profile
// update; tests use it to mutate a profile after requests were created.
func (s *Store) UpdateUserProfile(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.users[user.ID]; ok {
		delete(s.usernames, old.Username)
	}
	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil
	}
	if s.usernames[user.Username] == id {
		delete(s.usernames, user.Username)
	}
	delete(s.users, id)
	return nil
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[account.Email]; taken {
		return apperrors.Auth(apperrors.CodeEmailInUse, "email already in use")
	}
	s.accounts[account.ID] = *account
	s.emails[account.Email] = account.ID
	return nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, apperrors.NotFound("account not found")
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *Store) GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return nil, apperrors.NotFound("account not found")
	}
	for _, account := range s.accounts {
		if account.ResetToken == token {
			a := account
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("account not found")
}

// UpdateAccount understands the field names written by the auth service.
func (s *Store) UpdateAccount(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return apperrors.NotFound("account %s not found", id)
	}
	for k, v := range fields {
		switch k {
		case "hashed_password":
			account.HashedPassword = v.(string)
		case "display_name":
			account.DisplayName = v.(string)
		case "photo_url":
			account.PhotoURL = v.(string)
		case "reset_token":
			account.ResetToken = v.(string)
		case "reset_token_exp":
			account.ResetTokenExp = v.(time.Time)
		}
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account
	return nil
}

func (s *Store) ConsumeResetToken(ctx context.Context, id, token, hashedPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || token == "" || account.ResetToken != token {
		return apperrors.NotFound("reset code for account %s not found", id)
	}
	account.HashedPassword = hashedPassword
	account.ResetToken = ""
	account.ResetTokenExp = time.Time{}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil
	}
	if s.emails[account.Email] == id {
		delete(s.emails, account.Email)
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, account := range s.accounts {
		if account.ResetToken != "" && !account.ResetTokenExp.After(now) {
			account.ResetToken = ""
			account.ResetTokenExp = time.Time{}
			s.accounts[id] = account
			n++
		}
	}
	return n, nil
}

// Friend requests

func (s *Store) CountBetween(ctx context.Context, userA, userB string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, id := range []string{models.FriendRequestID(userA, userB), models.FriendRequestID(userB, userA)} {
		if _, ok := s.requests[id]; ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateIfAbsent(ctx context.Context, req *models.FriendRequest) error {
	req.PairKey = models.PairKey(req.SenderData.ID, req.ReceiverData.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.pairs[req.PairKey]; taken {
		return apperrors.Conflict("Friend request already exists")
	}
	if _, taken := s.requests[req.ID]; taken {
		return apperrors.Conflict("Friend request already exists")
	}
	s.requests[req.ID] = *req
	s.pairs[req.PairKey] = req.ID
	s.seq++
	s.insertOrder[req.ID] = s.seq
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, apperrors.NotFound("friend request %s not found", id)
	}
	return &req, nil
}

func (s *Store) GetByUser(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.FriendRequest{}
	for _, req := range s.requests {
		if req.Involves(userID) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.insertOrder[out[i].ID] < s.insertOrder[out[j].ID]
	})
	return out, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id, receiverID string, from, to models.FriendRequestStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != from || req.ReceiverData.ID != receiverID {
		return apperrors.Conflict("friend request %s is no longer %s", id, from)
	}
	req.Status = to
	req.UpdatedAt = at
	s.requests[id] = req
	return nil
}
