package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	RoomCreated            Type = "room.created"
	RoomJoined             Type = "room.joined"
	RoomLeft               Type = "room.left"
	RoomDeleted            Type = "room.deleted"
	RoomCreatorTransferred Type = "room.creator_transferred"
	RoomRoleUpdated        Type = "room.role_updated"
)

// RoomEvent describes a committed room lifecycle change.
type RoomEvent struct {
	Type       Type      `json:"type"`
	RoomID     uuid.UUID `json:"roomId"`
	UserID     uint      `json:"userId"`
	TargetID   uint      `json:"targetId,omitempty"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewRoomEvent(t Type, roomID uuid.UUID, userID uint) RoomEvent {
	return RoomEvent{Type: t, RoomID: roomID, UserID: userID, OccurredAt: time.Now().UTC()}
}

// Publisher delivers room events. Implementations log delivery failures
// instead of returning them: the change they describe has already committed.
type Publisher interface {
	Publish(ctx context.Context, event RoomEvent)
}

type nopPublisher struct{}

func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, RoomEvent) {}

// Multi fans each event out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event RoomEvent) {
	for _, p := range m {
		p.Publish(ctx, event)
	}
}

func logDropped(event RoomEvent, err error) {
	log.Error().Err(err).
		Str("module", "events").
		Str("type", string(event.Type)).
		Str("room_id", event.RoomID.String()).
		Msg("room event not delivered")
}
