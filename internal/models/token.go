package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token is a piece placed on a room's map.
type Token struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index" json:"roomId"`
	OwnerID   *uint     `gorm:"index" json:"ownerId"`
	Name      string    `gorm:"type:varchar(50);not null" json:"name"`
	X         float64   `gorm:"not null;default:0" json:"x"`
	Y         float64   `gorm:"not null;default:0" json:"y"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Token) IsOwnedBy(userID uint) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}
