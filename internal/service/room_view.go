package service

import (
	"time"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
)

const unknownNickname = "Unknown user"

// Room is the room representation returned to callers.
type Room struct {
	ID                  uuid.UUID     `json:"id"`
	Name                string        `json:"name"`
	MaxParticipants     int           `json:"maxParticipants"`
	CurrentParticipants int           `json:"currentParticipants"`
	CreatorID           *uint         `json:"creatorId"`
	CreatorNickname     string        `json:"creatorNickname"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	IsDeleted           bool          `json:"isDeleted"`
	Participants        []Participant `json:"participants"`
}

type Participant struct {
	ID       uint                   `json:"id"` // user id
	Nickname string                 `json:"nickname"`
	Role     models.ParticipantRole `json:"role"`
}

func convertModelToRoom(model *models.Room) *Room {
	room := &Room{
		ID:              model.ID,
		Name:            model.Name,
		MaxParticipants: model.MaxParticipants,
		CreatorID:       model.CreatorID,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
		IsDeleted:       model.IsDeleted(),
		Participants:    convertParticipants(model.Participants),
	}
	room.CurrentParticipants = len(room.Participants)
	if model.Creator != nil {
		room.CreatorNickname = model.Creator.Nickname
	}
	return room
}

// convertParticipants keeps active rows only; withdrawn users show a placeholder nickname.
func convertParticipants(ps []models.RoomParticipant) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		if !p.IsActive() {
			continue
		}
		nickname := unknownNickname
		if p.User != nil {
			nickname = p.User.Nickname
		}
		out = append(out, Participant{ID: p.UserID, Nickname: nickname, Role: p.Role})
	}
	return out
}
