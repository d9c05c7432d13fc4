package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/models"
	"github.com/Dias221467/Chat_Manager/internal/services"
	"github.com/Dias221467/Chat_Manager/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// SessionWatcher reports sign-in and sign-out events.
type SessionWatcher interface {
	OnSessionChange(fn func(services.SessionChange)) func()
}

// FriendRequestsMessage is pushed to the client on every change.
type FriendRequestsMessage struct {
	Type string                 `json:"type"`
	Data []models.FriendRequest `json:"data"`
}

// FriendStreamHandler streams a user's friend requests over WebSocket.
type FriendStreamHandler struct {
	Service  *services.FriendService
	Sessions SessionWatcher
	upgrader websocket.Upgrader
}

// NewFriendStreamHandler accepts upgrades from allowedOrigins; "*" allows any origin.
func NewFriendStreamHandler(service *services.FriendService, sessions SessionWatcher, allowedOrigins []string) *FriendStreamHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &FriendStreamHandler{
		Service:  service,
		Sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// SubscribeHandler upgrades the connection and pushes the full request list
// on subscribe and after each change. The socket is closed when the session
// signs out or expires.
func (h *FriendStreamHandler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ended := make(chan struct{})
	var endOnce sync.Once
	endSession := func() { endOnce.Do(func() { close(ended) }) }

	stopWatching := h.Sessions.OnSessionChange(func(c services.SessionChange) {
		if c.Session == nil && c.TokenID == session.TokenID {
			endSession()
		}
	})
	defer stopWatching()

	expiry := time.AfterFunc(time.Until(session.ExpiresAt), endSession)
	defer expiry.Stop()

	// latest snapshot wins; an unsent older one is replaced
	updates := make(chan []models.FriendRequest, 1)
	unsubscribe, err := h.Service.SubscribeToUserFriendRequests(ctx, session.UserID, func(reqs []models.FriendRequest) {
		select {
		case updates <- reqs:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- reqs
		}
	})
	if err != nil {
		logger.Log.WithError(err).WithField("userID", session.UserID).Error("Failed to subscribe to friend requests")
		closeWith(conn, websocket.CloseInternalServerErr, "subscription failed")
		return
	}
	defer unsubscribe()

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	logger.Log.WithField("userID", session.UserID).Info("Friend request stream opened")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ended:
			logger.Log.WithField("userID", session.UserID).Info("Closing friend request stream: session ended")
			closeWith(conn, websocket.ClosePolicyViolation, "session ended")
			return
		case reqs := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(FriendRequestsMessage{Type: "friend_requests", Data: reqs}); err != nil {
				logger.Log.WithError(err).Debug("Friend request stream write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and cancels when the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
