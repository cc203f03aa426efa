package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one persisted chat line in a room.
type ChatMessage struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_room_sent" json:"roomId"`
	SenderID uint      `gorm:"not null" json:"senderId"`
	Sender   *User     `gorm:"foreignKey:SenderID" json:"-"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	SentAt   time.Time `gorm:"autoCreateTime;index:idx_chat_room_sent" json:"sentAt"`
}

// NewChatMessage builds an unsaved message stamped with the current time.
func NewChatMessage(roomID uuid.UUID, senderID uint, content string) *ChatMessage {
	return &ChatMessage{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		SentAt:   time.Now(),
	}
}
