package model

import (
	"time"
)

// Conversation is a 1:1 thread between a user and a vendor's owner.
type Conversation struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	VendorID      string `gorm:"type:varchar(36);not null;uniqueIndex:idx_conversation_vendor_user" json:"vendorId"`
	UserID        uint   `gorm:"not null;uniqueIndex:idx_conversation_vendor_user;index" json:"userId"`
	VendorOwnerID uint   `gorm:"not null;index" json:"vendorOwnerId"`
	VendorName    string `json:"vendorName"`

	LastMessage   string     `gorm:"type:text" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `gorm:"index" json:"lastMessageAt,omitempty"`
	LastSenderID  uint       `json:"lastSenderId,omitempty"`

	// unread counts, one per participant
	UserUnread   int `gorm:"default:0" json:"userUnread"`
	VendorUnread int `gorm:"default:0" json:"vendorUnread"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID is one of the two sides.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.UserID == userID || c.VendorOwnerID == userID
}

// Recipient returns the other side of the conversation.
func (c *Conversation) Recipient(senderID uint) uint {
	if senderID == c.UserID {
		return c.VendorOwnerID
	}
	return c.UserID
}

type Message struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_message_conversation_created,priority:1" json:"conversationId"`
	SenderID       uint      `gorm:"not null;index" json:"senderId"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Read           bool      `gorm:"default:false" json:"read"`
	CreatedAt      time.Time `gorm:"index:idx_message_conversation_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
