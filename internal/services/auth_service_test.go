package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/internal/repository/memory"
	"github.com/Dias221467/Chat_Manager/internal/session"
	"github.com/Dias221467/Chat_Manager/internal/validation"
)

type fakeBlobs struct {
	mu      sync.Mutex
	uploads map[string][]byte
	err     error
}

func (f *fakeBlobs) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[path] = data
	return "https://cdn.example/" + path, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendEmail(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type authFixture struct {
	svc    *AuthService
	store  *memory.Store
	blobs  *fakeBlobs
	mailer *fakeMailer
}

func newAuthServiceForTest(t *testing.T) *authFixture {
	f := &authFixture{
		store:  memory.NewStore(),
		blobs:  &fakeBlobs{},
		mailer: &fakeMailer{},
	}
	f.svc = NewAuthService(f.store, f.store, f.blobs, session.NewRevocationStore(setupTestRedis(t), ""), f.mailer, AuthConfig{
		JWTSecret:        "test-secret",
		TokenExpiry:      time.Hour,
		KeepAliveExpiry:  30 * 24 * time.Hour,
		ResetContinueURL: "http://localhost:5173/reset-password",
	})
	return f
}

func signUpRequest(email, username string) SignUpRequest {
	return SignUpRequest{
		SignUpInput: validation.SignUpInput{
			Email:           email,
			Password:        "s3cret-pass",
			PasswordConfirm: "s3cret-pass",
			Username:        username,
			DisplayName:     "  Ana Souza ",
		},
		Avatar: &Avatar{Data: []byte("png"), ContentType: "image/png"},
	}
}

func TestSignUp(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()

	sess, user, err := f.svc.SignUp(ctx, signUpRequest("Ana@Example.com", "Ana-S"))
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "ana-s", user.Username)
	assert.Equal(t, "Ana Souza", user.DisplayName)
	assert.Equal(t, "https://cdn.example/avatars/"+user.ID, user.AvatarURL)
	assert.Equal(t, []byte("png"), f.blobs.uploads["avatars/"+user.ID])

	stored, err := f.store.GetUserByUsername(ctx, "ana-s")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)

	account, err := f.store.GetAccountByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", account.DisplayName)
	assert.Equal(t, user.AvatarURL, account.PhotoURL)
	assert.NotEqual(t, "s3cret-pass", account.HashedPassword)

	assert.Equal(t, user.ID, sess.UserID)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)
}

func TestSignUp_RequiresAvatar(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()

	for name, avatar := range map[string]*Avatar{
		"missing": nil,
		"empty":   {ContentType: "image/png"},
	} {
		t.Run(name, func(t *testing.T) {
			req := signUpRequest("ana@example.com", "ana")
			req.Avatar = avatar

			_, _, err := f.svc.SignUp(ctx, req)
			require.True(t, errors.Is(err, apperrors.ErrValidation))

			var verrs validation.Errors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, "avatar", verrs[0].Field)
			assert.Equal(t, validation.CodeAvatarRequired, verrs[0].Code)

			_, err = f.store.GetAccountByEmail(ctx, "ana@example.com")
			assert.True(t, errors.Is(err, apperrors.ErrNotFound))
			assert.Empty(t, f.blobs.uploads)
		})
	}
}

// failingUsers rejects every profile insert after the account was created.
type failingUsers struct {
	*memory.Store
	err error
}

func (f *failingUsers) CreateUser(ctx context.Context, user *models.User) error {
	return f.err
}

func TestSignUp_RollsBackWhenProfileFails(t *testing.T) {
	store := memory.NewStore()
	users := &failingUsers{Store: store, err: errors.New("users collection unavailable")}
	svc := NewAuthService(store, users, &fakeBlobs{}, session.NewRevocationStore(setupTestRedis(t), ""), &fakeMailer{}, AuthConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
	})
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.ErrorIs(t, err, users.err)

	_, err = store.GetAccountByEmail(ctx, "ana@example.com")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "account is removed")

	users.err = nil
	svc.users = store
	_, user, err := svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
}

func TestSignUp_Failures(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()
	_, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)

	t.Run("invalid input", func(t *testing.T) {
		req := signUpRequest("not-an-email", "A")
		req.PasswordConfirm = "different"
		_, _, err := f.svc.SignUp(ctx, req)

		var verrs validation.Errors
		require.True(t, errors.As(err, &verrs))
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.GreaterOrEqual(t, len(verrs), 3)
	})

	t.Run("username taken", func(t *testing.T) {
		_, _, err := f.svc.SignUp(ctx, signUpRequest("other@example.com", "ANA"))
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	})

	t.Run("email in use", func(t *testing.T) {
		_, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana-two"))
		assert.True(t, errors.Is(err, apperrors.ErrAuth))
		assert.Equal(t, apperrors.CodeEmailInUse, apperrors.CodeOf(err))
	})

	t.Run("upload failure", func(t *testing.T) {
		f.blobs.err = errors.New("bucket unavailable")
		defer func() { f.blobs.err = nil }()

		_, _, err := f.svc.SignUp(ctx, signUpRequest("bia@example.com", "bia"))
		assert.Error(t, err)

		n, err := f.store.CountByUsername(ctx, "bia")
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = f.store.GetAccountByEmail(ctx, "bia@example.com")
		assert.True(t, errors.Is(err, apperrors.ErrNotFound), "no orphan account")

		f.blobs.err = nil
		_, user, err := f.svc.SignUp(ctx, signUpRequest("bia@example.com", "bia"))
		require.NoError(t, err, "retry with the same email succeeds")
		assert.Equal(t, "bia@example.com", user.Email)
	})
}

func TestSignIn(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()
	_, user, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)

	sess, err := f.svc.SignIn(ctx, " ANA@example.com", "s3cret-pass", false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	kept, err := f.svc.SignIn(ctx, "ana@example.com", "s3cret-pass", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), kept.ExpiresAt, time.Minute)

	_, err = f.svc.SignIn(ctx, "nobody@example.com", "s3cret-pass", false)
	assert.Equal(t, apperrors.CodeUserNotFound, apperrors.CodeOf(err))

	_, err = f.svc.SignIn(ctx, "ana@example.com", "wrong-password", false)
	assert.Equal(t, apperrors.CodeWrongPassword, apperrors.CodeOf(err))

	_, err = f.svc.SignIn(ctx, "ana@example.com", "", false)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestCurrentSessionAndSignOut(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()
	sess, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)

	current, err := f.svc.CurrentSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, current.UserID)
	assert.Equal(t, sess.TokenID, current.TokenID)

	_, err = f.svc.CurrentSession(ctx, "garbage")
	assert.Equal(t, apperrors.CodeInvalidToken, apperrors.CodeOf(err))

	other, err := f.svc.SignIn(ctx, "ana@example.com", "s3cret-pass", false)
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, current))

	_, err = f.svc.CurrentSession(ctx, sess.Token)
	assert.Equal(t, apperrors.CodeSessionRevoked, apperrors.CodeOf(err))

	_, err = f.svc.CurrentSession(ctx, other.Token)
	assert.NoError(t, err, "other sessions stay valid")
}

func TestOnSessionChange(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()

	var mu sync.Mutex
	var changes []SessionChange
	unsubscribe := f.svc.OnSessionChange(func(c SessionChange) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	sess, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(ctx, sess))

	unsubscribe()
	_, err = f.svc.SignIn(ctx, "ana@example.com", "s3cret-pass", false)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, sess.UserID, changes[0].UserID)
	assert.NotNil(t, changes[0].Session)
	assert.Equal(t, sess.TokenID, changes[1].TokenID)
	assert.Nil(t, changes[1].Session)
}

var resetCodePattern = regexp.MustCompile(`oobCode=([0-9a-f-]{36})`)

func TestPasswordRecovery(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()
	_, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)

	err = f.svc.ForgotPassword(ctx, "nobody@example.com", "")
	assert.Equal(t, apperrors.CodeUserNotFound, apperrors.CodeOf(err))

	require.NoError(t, f.svc.ForgotPassword(ctx, "ana@example.com", ""))
	mail := f.mailer.last()
	assert.Equal(t, "ana@example.com", mail.to)
	assert.Contains(t, mail.body, "http://localhost:5173/reset-password?oobCode=")

	m := resetCodePattern.FindStringSubmatch(mail.body)
	require.Len(t, m, 2)
	code := m[1]

	err = f.svc.ResetPassword(ctx, code, "short")
	assert.Equal(t, apperrors.CodeWeakPassword, apperrors.CodeOf(err))

	err = f.svc.ResetPassword(ctx, "not-a-code", "new-password-1")
	assert.Equal(t, apperrors.CodeInvalidActionCode, apperrors.CodeOf(err))

	require.NoError(t, f.svc.ResetPassword(ctx, code, "new-password-1"))

	_, err = f.svc.SignIn(ctx, "ana@example.com", "new-password-1", false)
	assert.NoError(t, err)
	_, err = f.svc.SignIn(ctx, "ana@example.com", "s3cret-pass", false)
	assert.Equal(t, apperrors.CodeWrongPassword, apperrors.CodeOf(err))

	err = f.svc.ResetPassword(ctx, code, "another-password")
	assert.Equal(t, apperrors.CodeInvalidActionCode, apperrors.CodeOf(err), "codes are single use")
}

func TestResetPassword_ConcurrentSameCode(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()
	_, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ana@example.com", ""))
	code := resetCodePattern.FindStringSubmatch(f.mailer.last().body)[1]

	passwords := []string{"new-password-1", "new-password-2", "new-password-3", "new-password-4"}
	var mu sync.Mutex
	var winners []string
	var g errgroup.Group
	for _, pw := range passwords {
		pw := pw
		g.Go(func() error {
			err := f.svc.ResetPassword(ctx, code, pw)
			if err == nil {
				mu.Lock()
				winners = append(winners, pw)
				mu.Unlock()
				return nil
			}
			assert.Equal(t, apperrors.CodeInvalidActionCode, apperrors.CodeOf(err))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, winners, 1)
	_, err = f.svc.SignIn(ctx, "ana@example.com", winners[0], false)
	assert.NoError(t, err)
}

func TestResetPassword_Expired(t *testing.T) {
	f := newAuthServiceForTest(t)
	ctx := context.Background()
	_, _, err := f.svc.SignUp(ctx, signUpRequest("ana@example.com", "ana"))
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ana@example.com", "https://app.example/reset?lang=en"))
	mail := f.mailer.last()
	assert.Contains(t, mail.body, "https://app.example/reset?lang=en&oobCode=")
	code := resetCodePattern.FindStringSubmatch(mail.body)[1]

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	err = f.svc.ResetPassword(ctx, code, "new-password-1")
	assert.Equal(t, apperrors.CodeExpiredActionCode, apperrors.CodeOf(err))
}

func TestUserService(t *testing.T) {
	store := memory.NewStore()
	svc := NewUserService(store)
	ctx := context.Background()
	ana := seedUser(t, store, "uid-ana", "ana")

	got, err := svc.GetUser(ctx, "uid-ana")
	require.NoError(t, err)
	assert.Equal(t, *ana, *got)

	got, err = svc.GetUserByUsername(ctx, " ANA ")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)

	_, err = svc.GetUser(ctx, "uid-missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.EqualError(t, err, "User not found")
}
