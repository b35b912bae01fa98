package repository

import (
	"context"
	"time"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"gorm.io/gorm"
)

type ChatRepository interface {
	// Conversation operations
	FindOrCreateConversation(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error)
	GetConversationByID(ctx context.Context, id uint) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uint, limit, offset int) ([]model.Conversation, int64, error)

	// Message operations
	// CreateMessage stores the message and the conversation's last-message
	// metadata atomically.
	CreateMessage(ctx context.Context, message *model.Message, recipientID uint) error
	ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]model.Message, int64, error)
	MarkAsRead(ctx context.Context, conversationID, readerID uint) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindOrCreateConversation returns the conversation for the (vendor, user)
// pair, creating it on first contact.
func (r *chatRepository) FindOrCreateConversation(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	var existing model.Conversation
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND user_id = ?", conv.VendorID, conv.UserID).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		if isDuplicateKey(err) {
			// lost a race with a concurrent start
			if err := r.db.WithContext(ctx).
				Where("vendor_id = ? AND user_id = ?", conv.VendorID, conv.UserID).
				First(&existing).Error; err != nil {
				return nil, false, translateError(err)
			}
			return &existing, false, nil
		}
		return nil, false, err
	}
	return conv, true, nil
}

func (r *chatRepository) GetConversationByID(ctx context.Context, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &conv, nil
}

// ListConversations lists a user's conversations, latest message first.
func (r *chatRepository) ListConversations(ctx context.Context, userID uint, limit, offset int) ([]model.Conversation, int64, error) {
	var convs []model.Conversation
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("user_id = ? OR vendor_owner_id = ?", userID, userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("last_message_at IS NULL, last_message_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error; err != nil {
		return nil, 0, err
	}

	return convs, total, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *model.Message, recipientID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.First(&conv, message.ConversationID).Error; err != nil {
			return translateError(err)
		}

		if message.CreatedAt.IsZero() {
			message.CreatedAt = time.Now()
		}
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		unreadColumn := "user_unread"
		if recipientID == conv.VendorOwnerID {
			unreadColumn = "vendor_unread"
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]interface{}{
				"last_message":    message.Text,
				"last_message_at": message.CreatedAt,
				"last_sender_id":  message.SenderID,
				unreadColumn:      gorm.Expr(unreadColumn + " + 1"),
			}).Error
	})
}

// ListMessages returns the newest messages first.
func (r *chatRepository) ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]model.Message, int64, error) {
	var messages []model.Message
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Message{}).Where("conversation_id = ?", conversationID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkAsRead marks the other side's messages read and resets the unread count.
func (r *chatRepository) MarkAsRead(ctx context.Context, conversationID, readerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			return translateError(err)
		}

		if err := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
			Update("read", true).Error; err != nil {
			return err
		}

		unreadColumn := "user_unread"
		if readerID == conv.VendorOwnerID {
			unreadColumn = "vendor_unread"
		}
		return tx.Model(&model.Conversation{}).Where("id = ?", conversationID).Update(unreadColumn, 0).Error
	})
}
