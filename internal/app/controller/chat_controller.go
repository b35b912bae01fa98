package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/nearmi/localhunt-backend/internal/middleware"
	ws "github.com/nearmi/localhunt-backend/internal/websocket"
)

type ChatController struct {
	chatService service.ChatService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

// NewChatController builds the chat endpoints. Websocket upgrades are only
// accepted from allowedOrigins; "*" accepts any origin.
func NewChatController(chatService service.ChatService, hub *ws.Hub, allowedOrigins []string) *ChatController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimSpace(o)] = true
	}

	return &ChatController{
		chatService: chatService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser client
				if origin == "" {
					return true
				}
				return origins["*"] || origins[origin]
			},
		},
	}
}

type StartConversationRequest struct {
	VendorID string `json:"vendorId" binding:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// StartConversation opens or reuses a conversation with a vendor
// POST /api/v1/chats/conversations
func (ctrl *ChatController) StartConversation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "vendorId is required")
		return
	}

	conv, created, err := ctrl.chatService.StartConversation(c.Request.Context(), userID, req.VendorID)
	if err != nil {
		respondError(c, err, "conversation")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv})
}

// ListConversations GET /api/v1/chats/conversations
func (ctrl *ChatController) ListConversations(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	convs, total, err := ctrl.chatService.ListConversations(c.Request.Context(), userID, queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	if err != nil {
		respondError(c, err, "conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
		"total":         total,
	})
}

// GetConversation GET /api/v1/chats/conversations/:id
func (ctrl *ChatController) GetConversation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	conv, err := ctrl.chatService.GetConversation(c.Request.Context(), convID, userID)
	if err != nil {
		respondError(c, err, "conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// ListMessages GET /api/v1/chats/conversations/:id/messages
func (ctrl *ChatController) ListMessages(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	messages, total, err := ctrl.chatService.ListMessages(c.Request.Context(), convID, userID, queryInt(c, "page", 1), queryInt(c, "pageSize", 0))
	if err != nil {
		respondError(c, err, "message")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    total,
	})
}

// SendMessage POST /api/v1/chats/conversations/:id/messages
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "text is required")
		return
	}

	msg, err := ctrl.chatService.SendMessage(c.Request.Context(), convID, userID, req.Text)
	if err != nil {
		respondError(c, err, "message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead POST /api/v1/chats/conversations/:id/read
func (ctrl *ChatController) MarkRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.chatService.MarkRead(c.Request.Context(), convID, userID); err != nil {
		respondError(c, err, "conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

// JoinConversation subscribes the caller's sockets to typing events.
// POST /api/v1/chats/conversations/:id/join
func (ctrl *ChatController) JoinConversation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.chatService.JoinConversation(c.Request.Context(), convID, userID); err != nil {
		respondError(c, err, "conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveConversation POST /api/v1/chats/conversations/:id/leave
func (ctrl *ChatController) LeaveConversation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	ctrl.chatService.LeaveConversation(convID, userID)
	c.Status(http.StatusNoContent)
}

// WebSocketHandler upgrades the request to a chat session.
// GET /api/v1/chats/ws
// The token may arrive as a query parameter and is never logged.
func (ctrl *ChatController) WebSocketHandler(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}
