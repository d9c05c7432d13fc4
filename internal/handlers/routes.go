package handlers

import (
	"net/http"

	"github.com/Dias221467/Chat_Manager/pkg/middleware"
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the user and friend request endpoints on router.
func RegisterRoutes(router *mux.Router, users *UserHandler, friends *FriendHandler, stream *FriendStreamHandler, sessions middleware.SessionResolver) {
	auth := middleware.AuthMiddleware(sessions, WriteError)

	router.HandleFunc("/users/sign-up", users.SignUpHandler).Methods(http.MethodPost)
	router.HandleFunc("/users/sign-in", users.SignInHandler).Methods(http.MethodPost)
	router.HandleFunc("/users/forgot-password", users.ForgotPasswordHandler).Methods(http.MethodPost)
	router.HandleFunc("/users/reset-password", users.ResetPasswordHandler).Methods(http.MethodPost)

	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(auth)
	protectedUserRoutes.HandleFunc("/sign-out", users.SignOutHandler).Methods(http.MethodPost)
	protectedUserRoutes.HandleFunc("/me", users.MeHandler).Methods(http.MethodGet)

	protectedFriendRoutes := router.PathPrefix("/friend-requests").Subrouter()
	protectedFriendRoutes.Use(auth)
	protectedFriendRoutes.HandleFunc("", friends.CreateFriendRequestHandler).Methods(http.MethodPost)
	protectedFriendRoutes.HandleFunc("", friends.GetFriendRequestsHandler).Methods(http.MethodGet)
	protectedFriendRoutes.HandleFunc("/subscribe", stream.SubscribeHandler).Methods(http.MethodGet)
	protectedFriendRoutes.HandleFunc("/{id}", friends.UpdateFriendRequestHandler).Methods(http.MethodPatch)
}
