package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/services"
	"github.com/Dias221467/Chat_Manager/internal/validation"
	"github.com/Dias221467/Chat_Manager/pkg/logger"
	"github.com/Dias221467/Chat_Manager/pkg/middleware"
)

const maxAvatarSize = 5 << 20

// UserHandler serves sign-up, sign-in, password recovery and the caller's profile.
type UserHandler struct {
	Auth  *services.AuthService
	Users *services.UserService
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(auth *services.AuthService, users *services.UserService) *UserHandler {
	return &UserHandler{
		Auth:  auth,
		Users: users,
	}
}

// SignUpHandler accepts a multipart form with the profile fields and an avatar file.
func (h *UserHandler) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAvatarSize + 1<<20); err != nil {
		WriteError(w, r, apperrors.Validation("Invalid request payload"))
		return
	}

	keepConnected, _ := strconv.ParseBool(r.FormValue("keep_connected"))
	req := services.SignUpRequest{
		SignUpInput: validation.SignUpInput{
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			PasswordConfirm: r.FormValue("password_confirm"),
			Username:        r.FormValue("username"),
			DisplayName:     r.FormValue("display_name"),
		},
		KeepConnected: keepConnected,
	}

	file, header, err := r.FormFile("avatar")
	if err == nil {
		defer file.Close()
		if header.Size > maxAvatarSize {
			WriteError(w, r, apperrors.Validation("avatar must be at most 5MB"))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize))
		if err != nil {
			WriteError(w, r, apperrors.Validation("Invalid avatar file"))
			return
		}
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		req.Avatar = &services.Avatar{Data: data, ContentType: contentType}
	} else if err != http.ErrMissingFile {
		WriteError(w, r, apperrors.Validation("Invalid avatar file"))
		return
	}

	session, user, err := h.Auth.SignUp(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Warn("Sign-up failed")
		WriteError(w, r, err)
		return
	}

	logger.Log.Infof("User %s signed up", user.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
		"user":    user,
	})
}

func (h *UserHandler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email         string `json:"email"`
		Password      string `json:"password"`
		KeepConnected bool   `json:"keep_connected"`
	}
	if err := decodeJSON(r, &credentials); err != nil {
		WriteError(w, r, err)
		return
	}

	session, err := h.Auth.SignIn(r.Context(), credentials.Email, credentials.Password, credentials.KeepConnected)
	if err != nil {
		logger.Log.WithField("email", credentials.Email).Warn("Authentication failed")
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *UserHandler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		ContinueURL string `json:"continue_url"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.Auth.ForgotPassword(r.Context(), body.Email, body.ContinueURL); err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset email sent",
	})
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), body.Code, body.Password); err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated",
	})
}

func (h *UserHandler) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	if err := h.Auth.SignOut(r.Context(), session); err != nil {
		WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the caller's public profile.
func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		WriteError(w, r, apperrors.Auth(apperrors.CodeInvalidToken, "not signed in"))
		return
	}

	user, err := h.Users.GetUser(r.Context(), session.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
