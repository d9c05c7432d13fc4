package handlers

import (
	"net/http"

	"github.com/Dias221467/Chat_Manager/internal/apperrors"
	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/internal/services"
	"github.com/Dias221467/Chat_Manager/pkg/logger"
	"github.com/Dias221467/Chat_Manager/pkg/middleware"
	"github.com/gorilla/mux"
)

// FriendHandler manages HTTP endpoints related to friend requests.
type FriendHandler struct {
	Service *services.FriendService
	Users   *services.UserService
}

// NewFriendHandler initializes a new FriendHandler.
func NewFriendHandler(service *services.FriendService, users *services.UserService) *FriendHandler {
	return &FriendHandler{Service: service, Users: users}
}

func requireSession(w http.ResponseWriter, r *http.Request) *models.Session {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		WriteError(w, r, apperrors.Auth(apperrors.CodeInvalidToken, "not signed in"))
	}
	return session
}

// CreateFriendRequestHandler sends a friend request to a username.
func (h *FriendHandler) CreateFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var body struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	sender, err := h.Users.GetUser(r.Context(), session.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	request, err := h.Service.CreateFriendRequest(r.Context(), sender.Snapshot(), body.Username)
	if err != nil {
		logger.Log.Warnf("Failed to send friend request: %v", err)
		WriteError(w, r, err)
		return
	}

	logger.Log.Infof("User %s sent a friend request to %s", session.UserID, request.ReceiverData.ID)
	writeJSON(w, http.StatusCreated, request)
}

// GetFriendRequestsHandler lists every request the caller sent or received.
func (h *FriendHandler) GetFriendRequestsHandler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	requests, err := h.Service.FetchUserFriendRequests(r.Context(), session.UserID)
	if err != nil {
		logger.Log.Errorf("Failed to get friend requests: %v", err)
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// UpdateFriendRequestHandler accepts or rejects a request addressed to the caller.
func (h *FriendHandler) UpdateFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}
	requestID := mux.Vars(r)["id"]

	var body struct {
		Status models.FriendRequestStatus `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	request, err := h.Service.UpdateFriendRequest(r.Context(), session.UserID, requestID, body.Status)
	if err != nil {
		logger.Log.Warnf("Failed to update friend request %s: %v", requestID, err)
		WriteError(w, r, err)
		return
	}

	logger.Log.Infof("User %s set friend request %s to %s", session.UserID, requestID, body.Status)
	writeJSON(w, http.StatusOK, request)
}
