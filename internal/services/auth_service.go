package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/internal/repository"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"github.com/Dias221467/Chat_Manager/pkg/email"
	"github.com/Dias221467/Chat_Manager/pkg/jwt"
)

const resetCodeTTL = time.Hour

// BlobUploader stores a file and returns its public URL.
type BlobUploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Revoker remembers signed-out token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// EmailSender delivers plain text email.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type AuthConfig struct {
	JWTSecret        string
	TokenExpiry      time.Duration
	KeepAliveExpiry  time.Duration
	ResetContinueURL string
}

// Avatar is an uploaded profile picture.
type Avatar struct {
	Data        []byte
	ContentType string
}

type SignUpRequest struct {
	validation.SignUpInput
	Avatar        *Avatar
	KeepConnected bool
}

// SessionChange is emitted on sign-in and sign-out. Session is nil on sign-out.
type SessionChange struct {
	UserID  string
	TokenID string
	Session *models.Session
}

// AuthService is the identity provider: accounts, sessions and password recovery.
type AuthService struct {
	accounts repository.AccountStore
	users    repository.UserStore
	blobs    BlobUploader
	revoker  Revoker
	mailer   EmailSender
	cfg      AuthConfig
	now      func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(SessionChange)
	nextID    int
}

func NewAuthService(accounts repository.AccountStore, users repository.UserStore, blobs BlobUploader, revoker Revoker, mailer EmailSender, cfg AuthConfig) *AuthService {
	return &AuthService{
		accounts:  accounts,
		users:     users,
		blobs:     blobs,
		revoker:   revoker,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
		listeners: make(map[int]func(SessionChange)),
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// SignUp creates the account, uploads the avatar, stores the public profile
// and signs the new user in.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*models.Session, *models.User, error) {
	in := req.SignUpInput
	in.Email = normalizeEmail(in.Email)
	in.Username = validation.NormalizeUsername(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.HasAvatar = req.Avatar != nil && len(req.Avatar.Data) > 0

	if err := validation.ValidateSignUp(in); err != nil {
		return nil, nil, err
	}

	taken, err := s.users.CountByUsername(ctx, in.Username)
	if err != nil {
		return nil, nil, err
	}
	if taken > 0 {
		return nil, nil, apperrors.Conflict("username %s is already taken", in.Username)
	}

	if _, err := s.accounts.GetAccountByEmail(ctx, in.Email); err == nil {
		logrus.WithField("email", in.Email).Warn("Email already in use")
		return nil, nil, apperrors.Auth(apperrors.CodeEmailInUse, "email already in use")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Password hashing failed")
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	account := &models.Account{
		ID:             uuid.NewString(),
		Email:          in.Email,
		HashedPassword: string(hashedPwd),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, nil, err
	}

	user, session, err := s.completeSignUp(ctx, account, in, req)
	if err != nil {
		logrus.WithError(err).WithField("userID", account.ID).Error("Failed to finish sign-up")
		s.rollbackSignUp(ctx, account.ID)
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"userID":   user.ID,
		"username": user.Username,
	}).Info("User registered successfully")

	return session, user, nil
}

// completeSignUp runs every step after the account exists. Any error leaves
// partial state that rollbackSignUp removes.
func (s *AuthService) completeSignUp(ctx context.Context, account *models.Account, in validation.SignUpInput, req SignUpRequest) (*models.User, *models.Session, error) {
	avatarURL, err := s.blobs.Upload(ctx, "avatars/"+account.ID, req.Avatar.Data, req.Avatar.ContentType)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		ID:          account.ID,
		Email:       account.Email,
		Username:    in.Username,
		DisplayName: in.DisplayName,
		AvatarURL:   avatarURL,
		CreatedAt:   account.CreatedAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.accounts.UpdateAccount(gctx, account.ID, map[string]interface{}{
			"display_name": user.DisplayName,
			"photo_url":    user.AvatarURL,
		})
	})
	g.Go(func() error {
		return s.users.CreateUser(gctx, user)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(account, req.KeepConnected)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// rollbackSignUp deletes the profile and account of a failed sign-up so the
// email and username can be used again. It runs even if ctx was cancelled.
func (s *AuthService) rollbackSignUp(ctx context.Context, accountID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.users.DeleteUser(ctx, accountID); err != nil {
		logrus.WithError(err).WithField("userID", accountID).Error("Failed to remove profile of failed sign-up")
	}
	if err := s.accounts.DeleteAccount(ctx, accountID); err != nil {
		logrus.WithError(err).WithField("userID", accountID).Error("Failed to remove account of failed sign-up")
	}
}

// SignIn verifies the credentials. keepConnected selects the long token lifetime.
func (s *AuthService) SignIn(ctx context.Context, emailAddr, password string, keepConnected bool) (*models.Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	if err := validation.ValidateSignIn(emailAddr, password); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetAccountByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logrus.WithField("email", emailAddr).Warn("User not found")
			return nil, apperrors.Auth(apperrors.CodeUserNotFound, "user not found")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(password)); err != nil {
		logrus.WithField("email", emailAddr).Warn("Wrong password")
		return nil, apperrors.Auth(apperrors.CodeWrongPassword, "wrong password")
	}

	return s.issueSession(account, keepConnected)
}

func (s *AuthService) issueSession(account *models.Account, keepConnected bool) (*models.Session, error) {
	expiry := s.cfg.TokenExpiry
	if keepConnected {
		expiry = s.cfg.KeepAliveExpiry
	}

	token, claims, err := jwt.GenerateToken(account.ID, account.Email, s.cfg.JWTSecret, expiry)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:    account.ID,
		Email:     account.Email,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	s.emit(SessionChange{UserID: session.UserID, TokenID: session.TokenID, Session: session})
	return session, nil
}

// SignOut revokes the session's token until it expires.
func (s *AuthService) SignOut(ctx context.Context, session *models.Session) error {
	if session == nil {
		return apperrors.Auth(apperrors.CodeInvalidToken, "not signed in")
	}
	if err := s.revoker.Revoke(ctx, session.TokenID, session.ExpiresAt.Sub(s.now())); err != nil {
		return err
	}

	logrus.WithField("userID", session.UserID).Info("User signed out")
	s.emit(SessionChange{UserID: session.UserID, TokenID: session.TokenID})
	return nil
}

// CurrentSession resolves a bearer token to its session.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := jwt.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, apperrors.Auth(apperrors.CodeInvalidToken, "invalid or expired session")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.Auth(apperrors.CodeSessionRevoked, "session was signed out")
	}

	return &models.Session{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// OnSessionChange registers fn for sign-in and sign-out events and returns
// a function that removes it.
func (s *AuthService) OnSessionChange(fn func(SessionChange)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) emit(change SessionChange) {
	s.mu.RLock()
	fns := make([]func(SessionChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

// ForgotPassword mails a one-hour reset code. continueURL overrides the
// configured link target when set.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr, continueURL string) error {
	emailAddr = normalizeEmail(emailAddr)
	if err := validation.ValidateEmail(emailAddr); err != nil {
		return err
	}

	account, err := s.accounts.GetAccountByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Auth(apperrors.CodeUserNotFound, "no account found with this email")
		}
		return err
	}

	code := uuid.NewString()
	if err := s.accounts.UpdateAccount(ctx, account.ID, map[string]interface{}{
		"reset_token":     code,
		"reset_token_exp": s.now().UTC().Add(resetCodeTTL),
	}); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	if continueURL == "" {
		continueURL = s.cfg.ResetContinueURL
	}
	body := fmt.Sprintf("Click the link below to reset your password:\n\n%s", email.BuildResetLink(continueURL, code))

	if err := s.mailer.SendEmail(account.Email, "Reset Your Password", body); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	logrus.WithField("userID", account.ID).Info("Password reset email sent")
	return nil
}

// ResetPassword sets a new password using a code sent by ForgotPassword.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if strings.TrimSpace(code) == "" {
		return apperrors.Auth(apperrors.CodeInvalidActionCode, "invalid reset code")
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperrors.Auth(apperrors.CodeWeakPassword, "password is too weak")
	}

	account, err := s.accounts.GetAccountByResetToken(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Auth(apperrors.CodeInvalidActionCode, "invalid reset code")
		}
		return err
	}

	if s.now().After(account.ResetTokenExp) {
		return apperrors.Auth(apperrors.CodeExpiredActionCode, "reset code has expired")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Conditional on the code so a concurrent reset with the same code loses.
	if err := s.accounts.ConsumeResetToken(ctx, account.ID, code, string(hashedPwd)); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Auth(apperrors.CodeInvalidActionCode, "invalid reset code")
		}
		return err
	}

	logrus.WithField("userID", account.ID).Info("Password reset")
	return nil
}
