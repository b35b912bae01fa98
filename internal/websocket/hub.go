package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nearmi/localhunt-backend/pkg/logger"
)

const (
	// client frames allowed per second
	maxMessagesPerSecond = 10

	sendBufferSize = 256

	EventMessage     = "message"
	EventRead        = "read"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// Event is the envelope pushed to connected clients.
type Event struct {
	Type           string      `json:"type"`
	ConversationID uint        `json:"conversationId"`
	UserID         uint        `json:"userId,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
}

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversationId"`
}

// Client is one websocket session. A user may hold several.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte

	mu            sync.RWMutex
	conversations map[uint]bool

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

// NewClient builds a session bound to hub. conn may be nil in tests.
func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		UserID:        userID,
		Send:          make(chan []byte, sendBufferSize),
		conversations: make(map[uint]bool),
		lastResetTime: time.Now(),
	}
}

// Hub routes events to the sessions of online users.
type Hub struct {
	clients map[uint][]*Client

	// conversationID -> joined user ids, used for typing events only
	rooms map[uint]map[uint]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery

	mu sync.RWMutex
}

type delivery struct {
	userIDs []uint
	data    []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		rooms:      make(map[uint]map[uint]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		deliver:    make(chan *delivery, 1024),
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case d := <-h.deliver:
			h.mu.RLock()
			var stale []*Client
			for _, userID := range d.userIDs {
				for _, client := range h.clients[userID] {
					select {
					case client.Send <- d.data:
					default:
						stale = append(stale, client)
					}
				}
			}
			h.mu.RUnlock()

			for _, client := range stale {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"user_id": client.UserID,
				})
				h.removeClient(client)
			}
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	remaining := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return
	}

	if len(remaining) == 0 {
		delete(h.clients, client.UserID)
		client.mu.RLock()
		for convID := range client.conversations {
			if users, ok := h.rooms[convID]; ok {
				delete(users, client.UserID)
				if len(users) == 0 {
					delete(h.rooms, convID)
				}
			}
		}
		client.mu.RUnlock()
	} else {
		h.clients[client.UserID] = remaining
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(remaining),
	})
}

// Join subscribes every session of userID to typing events of a conversation.
// Participation must already have been checked by the caller.
func (h *Hub) Join(userID, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[userID]
	if !ok {
		return
	}
	for _, client := range list {
		client.mu.Lock()
		client.conversations[conversationID] = true
		client.mu.Unlock()
	}
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[uint]bool)
	}
	h.rooms[conversationID][userID] = true
}

func (h *Hub) Leave(userID, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients[userID] {
		client.mu.Lock()
		delete(client.conversations, conversationID)
		client.mu.Unlock()
	}
	if users, ok := h.rooms[conversationID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// SendToUsers pushes event to every session of the given users. Delivery is
// best-effort; a full queue drops the event.
func (h *Hub) SendToUsers(event Event, userIDs ...uint) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal websocket event", err, map[string]interface{}{
			"type": event.Type,
		})
		return err
	}

	select {
	case h.deliver <- &delivery{userIDs: userIDs, data: data}:
	default:
		logger.Warn("Delivery queue full, event dropped", map[string]interface{}{
			"type":            event.Type,
			"conversation_id": event.ConversationID,
		})
	}
	return nil
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) roomMembers(conversationID, except uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var users []uint
	for userID := range h.rooms[conversationID] {
		if userID != except {
			users = append(users, userID)
		}
	}
	return users
}

// allow applies the per-session rate limit.
func (c *Client) allow(now time.Time) bool {
	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	if now.Sub(c.lastResetTime) >= time.Second {
		c.messageCount = 0
		c.lastResetTime = now
	}
	c.messageCount++
	return c.messageCount <= maxMessagesPerSecond
}

func (c *Client) inConversation(conversationID uint) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conversations[conversationID]
}

// HandleClientMessage relays typing events to the other joined participant.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	if !client.allow(time.Now()) {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type != EventTypingStart && msg.Type != EventTypingStop {
		return
	}
	if !client.inConversation(msg.ConversationID) {
		logger.Warn("User not joined to conversation", map[string]interface{}{
			"user_id":         client.UserID,
			"conversation_id": msg.ConversationID,
		})
		return
	}

	recipients := h.roomMembers(msg.ConversationID, client.UserID)
	if len(recipients) == 0 {
		return
	}
	_ = h.SendToUsers(Event{
		Type:           msg.Type,
		ConversationID: msg.ConversationID,
		UserID:         client.UserID,
	}, recipients...)
}
