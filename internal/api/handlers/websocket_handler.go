package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/services"
	ws "github.com/isdelr/quill-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

const subscribeTimeout = 5 * time.Second

// WebSocketHandler handles upgrading HTTP connections to live feed connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	posts    services.PostServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browsers may connect
// from allowedOrigins or from the API's own host; "*" allows any origin.
func NewWebSocketHandler(hub *ws.Hub, posts services.PostServiceProvider, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, posts: posts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Serve handles the WebSocket connection request. It must run behind
// auth.JWTMiddleware.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFrom(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, identity.UserID, identity.SessionID, identity.ExpiresAt)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.handleIncomingWSMessage)
}

type topicPayload struct {
	Post string `json:"post"`
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Inbound
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("user_id", client.UserID).Msg("Error decoding websocket message")
		client.Reply(ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "subscribe", "unsubscribe":
		var payload topicPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Post == "" {
			client.Reply(ws.NewErrorMessage("Invalid payload: post is required"))
			return
		}

		if msg.Action == "unsubscribe" {
			h.hub.Unsubscribe(client, payload.Post)
			h.reply(client, "unsubscribed", payload)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		defer cancel()
		if _, err := h.posts.GetPostByID(ctx, payload.Post); err != nil {
			client.Reply(ws.NewErrorMessage("Unknown post: " + payload.Post))
			return
		}
		h.hub.Subscribe(client, payload.Post)
		log.Debug().Str("user_id", client.UserID).Str("post", payload.Post).Msg("Client subscribed to post")
		h.reply(client, "subscribed", payload)

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.Reply(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}

func (h *WebSocketHandler) reply(client *ws.Client, action string, payload interface{}) {
	b, err := json.Marshal(ws.Message{Action: action, Payload: payload})
	if err != nil {
		return
	}
	client.Reply(b)
}
