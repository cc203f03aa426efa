package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRoomParticipants = 2
	MaxRoomParticipants = 8
)

// Room is a password-gated session container with exactly one creator.
type Room struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string            `gorm:"type:varchar(50);not null" json:"name"`
	Password        string            `gorm:"not null" json:"-"` // bcrypt hash
	MaxParticipants int               `gorm:"not null;default:2;check:chk_rooms_max_participants,max_participants BETWEEN 2 AND 8" json:"maxParticipants"`
	CreatorID       *uint             `gorm:"index" json:"creatorId"`
	Creator         *User             `gorm:"foreignKey:CreatorID" json:"-"`
	Participants    []RoomParticipant `gorm:"foreignKey:RoomID" json:"-"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}

// BeforeCreate assigns the room identifier when the caller left it empty.
func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Room) IsDeleted() bool {
	return r.DeletedAt.Valid
}

// IsCreator reports whether userID currently holds the creator seat.
func (r *Room) IsCreator(userID uint) bool {
	return r.CreatorID != nil && *r.CreatorID == userID
}

// ParticipantRole is the role a participant holds inside one room.
type ParticipantRole string

const (
	RoleGM     ParticipantRole = "GM"
	RolePlayer ParticipantRole = "PLAYER"
)

func (r ParticipantRole) Valid() bool {
	return r == RoleGM || r == RolePlayer
}

// RoomParticipant records one join of a user into a room. LeftAt doubles as the
// soft-delete marker, so default queries only return active memberships.
type RoomParticipant struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	RoomID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"roomId"`
	UserID   uint            `gorm:"not null;index;uniqueIndex:idx_participants_active_user,where:left_at IS NULL" json:"userId"`
	User     *User           `gorm:"foreignKey:UserID" json:"-"`
	Role     ParticipantRole `gorm:"type:varchar(10);not null;default:PLAYER" json:"role"`
	JoinedAt time.Time       `gorm:"autoCreateTime" json:"joinedAt"`
	LeftAt   gorm.DeletedAt  `gorm:"column:left_at;index" json:"leftAt"`
}

func (p *RoomParticipant) IsActive() bool {
	return !p.LeftAt.Valid
}
