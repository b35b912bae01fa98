package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/websocket"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant in this conversation")
	ErrEmptyMessage         = errors.New("message text is required")
	ErrMessageTooLong       = errors.New("message text is too long")
	ErrOwnVendorChat        = errors.New("you cannot start a conversation with your own vendor")
)

const (
	MaxMessageLength = 2000

	defaultChatPageSize = 50
	maxChatPageSize     = 100
)

// ChatNotifier pushes realtime events to connected participants.
type ChatNotifier interface {
	SendToUsers(event websocket.Event, userIDs ...uint) error
	Join(userID, conversationID uint)
	Leave(userID, conversationID uint)
}

type ChatService interface {
	StartConversation(ctx context.Context, userID uint, vendorID string) (*model.Conversation, bool, error)
	GetConversation(ctx context.Context, conversationID, userID uint) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uint, page, pageSize int) ([]model.Conversation, int64, error)
	SendMessage(ctx context.Context, conversationID, senderID uint, text string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID, userID uint, page, pageSize int) ([]model.Message, int64, error)
	MarkRead(ctx context.Context, conversationID, userID uint) error
	JoinConversation(ctx context.Context, conversationID, userID uint) error
	LeaveConversation(conversationID, userID uint)
}

type chatService struct {
	repo       repository.ChatRepository
	vendorRepo repository.VendorRepository
	notifier   ChatNotifier
}

// NewChatService wires messaging. notifier may be nil to disable push.
func NewChatService(repo repository.ChatRepository, vendorRepo repository.VendorRepository, notifier ChatNotifier) ChatService {
	return &chatService{
		repo:       repo,
		vendorRepo: vendorRepo,
		notifier:   notifier,
	}
}

func paginate(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultChatPageSize
	}
	if pageSize > maxChatPageSize {
		pageSize = maxChatPageSize
	}
	return pageSize, (page - 1) * pageSize
}

// StartConversation opens a conversation with a vendor or returns the existing one.
func (s *chatService) StartConversation(ctx context.Context, userID uint, vendorID string) (*model.Conversation, bool, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrVendorNotFound
		}
		return nil, false, err
	}
	if vendor.Status != model.VendorStatusApproved {
		return nil, false, ErrVendorNotFound
	}
	if vendor.UserID == userID {
		return nil, false, ErrOwnVendorChat
	}

	conv, created, err := s.repo.FindOrCreateConversation(ctx, &model.Conversation{
		VendorID:      vendor.ID,
		UserID:        userID,
		VendorOwnerID: vendor.UserID,
		VendorName:    vendor.BusinessName,
	})
	if err != nil {
		logger.Error("Failed to start conversation", err, map[string]interface{}{
			"vendor_id": vendorID,
			"user_id":   userID,
		})
		return nil, false, err
	}

	if created {
		logger.Info("Conversation started", map[string]interface{}{
			"conversation_id": conv.ID,
			"vendor_id":       vendorID,
			"user_id":         userID,
		})
	}
	return conv, created, nil
}

func (s *chatService) GetConversation(ctx context.Context, conversationID, userID uint) (*model.Conversation, error) {
	conv, err := s.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		logger.Warn("Conversation access denied", map[string]interface{}{
			"conversation_id": conversationID,
			"user_id":         userID,
		})
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID uint, page, pageSize int) ([]model.Conversation, int64, error) {
	limit, offset := paginate(page, pageSize)
	return s.repo.ListConversations(ctx, userID, limit, offset)
}

// SendMessage stores the message with the conversation metadata in one
// transaction, then pushes it to both sides' online sessions.
func (s *chatService) SendMessage(ctx context.Context, conversationID, senderID uint, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(text)) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	conv, err := s.GetConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
	}
	recipientID := conv.Recipient(senderID)
	if err := s.repo.CreateMessage(ctx, msg, recipientID); err != nil {
		logger.Error("Failed to send message", err, map[string]interface{}{
			"conversation_id": conversationID,
			"sender_id":       senderID,
		})
		return nil, err
	}

	if s.notifier != nil {
		// sender's other devices also need the message
		_ = s.notifier.SendToUsers(websocket.Event{
			Type:           websocket.EventMessage,
			ConversationID: conv.ID,
			UserID:         senderID,
			Payload:        msg,
		}, recipientID, senderID)
	}
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, conversationID, userID uint, page, pageSize int) ([]model.Message, int64, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, 0, err
	}
	limit, offset := paginate(page, pageSize)
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

func (s *chatService) MarkRead(ctx context.Context, conversationID, userID uint) error {
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkAsRead(ctx, conversationID, userID); err != nil {
		logger.Error("Failed to mark conversation read", err, map[string]interface{}{
			"conversation_id": conversationID,
			"user_id":         userID,
		})
		return err
	}

	if s.notifier != nil {
		_ = s.notifier.SendToUsers(websocket.Event{
			Type:           websocket.EventRead,
			ConversationID: conversationID,
			UserID:         userID,
		}, conv.Recipient(userID))
	}
	return nil
}

func (s *chatService) JoinConversation(ctx context.Context, conversationID, userID uint) error {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Join(userID, conversationID)
	}
	return nil
}

func (s *chatService) LeaveConversation(conversationID, userID uint) {
	if s.notifier != nil {
		s.notifier.Leave(userID, conversationID)
	}
}
