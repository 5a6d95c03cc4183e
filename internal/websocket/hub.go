package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// GlobalTopic is delivered to every connected client.
const GlobalTopic = "global"

// envelope is a queued message for a topic, or for a single client when client is set.
type envelope struct {
	topic   string
	client  *Client
	message []byte
}

type subscription struct {
	client *Client
	topic  string
	add    bool
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All client and subscription state is owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of topics (post IDs) to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	disconnect chan string

	done     chan struct{}
	stopOnce sync.Once
	count    atomic.Int64
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		broadcast:     make(chan envelope, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		disconnect:    make(chan string),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.UserID).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sessionID := <-h.disconnect:
			for client := range h.clients {
				if client.SessionID == sessionID {
					h.drop(client)
					log.Info().Str("user_id", client.UserID).Msg("Client session revoked, disconnecting")
				}
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			if sub.add {
				h.addSubscription(sub.client, sub.topic)
			} else {
				h.removeSubscription(sub.client, sub.topic)
			}
		case env := <-h.broadcast:
			if env.client != nil {
				if _, ok := h.clients[env.client]; ok {
					h.deliver(env.client, env.message)
				}
				continue
			}
			if env.topic == GlobalTopic {
				for client := range h.clients {
					h.deliver(client, env.message)
				}
				continue
			}
			for client := range h.subscriptions[env.topic] {
				h.deliver(client, env.message)
			}
		}
	}
}

// Stop shuts the hub down and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// DisconnectSession closes every client opened with an access token from the
// given refresh token.
func (h *Hub) DisconnectSession(sessionID string) {
	if sessionID == "" {
		return
	}
	select {
	case h.disconnect <- sessionID:
	case <-h.done:
	}
}

// Subscribe adds client to a topic's audience.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.updateSubscription(subscription{client: client, topic: topic, add: true})
}

// Unsubscribe removes client from a topic's audience.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.updateSubscription(subscription{client: client, topic: topic})
}

func (h *Hub) updateSubscription(sub subscription) {
	select {
	case h.subscribe <- sub:
	case <-h.done:
	}
}

// Publish queues a message for the topic's audience. It never blocks: when
// the queue is full the message is dropped.
func (h *Hub) Publish(topic, action string, payload interface{}) {
	message, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Error marshalling broadcast message")
		return
	}

	if !h.enqueue(envelope{topic: topic, message: message}) {
		log.Warn().Str("action", action).Str("topic", topic).Msg("Broadcast queue full, dropping message")
	}
}

// SendTo queues a message for a single client.
func (h *Hub) SendTo(client *Client, message []byte) {
	if !h.enqueue(envelope{client: client, message: message}) {
		log.Warn().Str("user_id", client.UserID).Msg("Broadcast queue full, dropping reply")
	}
}

// enqueue reports false only when the queue is full.
func (h *Hub) enqueue(env envelope) bool {
	select {
	case <-h.done:
		return true
	case h.broadcast <- env:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// deliver sends without blocking; a client that cannot keep up is dropped.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		log.Warn().Str("user_id", client.UserID).Msg("Client send buffer full, disconnecting")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client, "")
	h.count.Store(int64(len(h.clients)))
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

// removeSubscription removes client from topic, or from every topic when topic is empty.
func (h *Hub) removeSubscription(client *Client, topic string) {
	for t, subs := range h.subscriptions {
		if topic != "" && t != topic {
			continue
		}
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, t)
			}
		}
	}
}
