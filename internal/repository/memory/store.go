// Package memory is an in-process implementation of the repository
// interfaces. Transactions are serialized and rolled back from a snapshot;
// writes outside a transaction wait for the running one. This
// gives the same guarantees as row locks on a single room.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

type txKey struct{}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	rooms        map[uuid.UUID]models.Room
	participants map[uint]models.RoomParticipant
	users        map[uint]models.User
	messages     []models.ChatMessage
	tokens       map[uuid.UUID]models.Token

	nextParticipantID uint
	nextUserID        uint
	nextMessageID     uint
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[uuid.UUID]models.Room),
		participants: make(map[uint]models.RoomParticipant),
		users:        make(map[uint]models.User),
		tokens:       make(map[uuid.UUID]models.Token),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tx:          s,
		User:        &userRepository{s},
		Room:        &roomRepository{s},
		Participant: &participantRepository{s},
		Message:     &messageRepository{s},
		Token:       &tokenRepository{s},
	}
}

type snapshot struct {
	rooms        map[uuid.UUID]models.Room
	participants map[uint]models.RoomParticipant
	users        map[uint]models.User
	messages     []models.ChatMessage
	tokens       map[uuid.UUID]models.Token
	ids          [3]uint
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		rooms:        cloneMap(s.rooms),
		participants: cloneMap(s.participants),
		users:        cloneMap(s.users),
		messages:     append([]models.ChatMessage(nil), s.messages...),
		tokens:       cloneMap(s.tokens),
		ids:          [3]uint{s.nextParticipantID, s.nextUserID, s.nextMessageID},
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = snap.rooms
	s.participants = snap.participants
	s.users = snap.users
	s.messages = snap.messages
	s.tokens = snap.tokens
	s.nextParticipantID, s.nextUserID, s.nextMessageID = snap.ids[0], snap.ids[1], snap.ids[2]
}

// WithinTx serializes fn against every other transaction and undoes its
// writes when it returns an error. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// writeLock makes a write issued outside a transaction wait for the running
// one, so a rollback snapshot never covers it. Writes inside a transaction
// already hold txMu.
func (s *Store) writeLock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

// ActiveParticipants returns every active membership row, across all rooms.
func (s *Store) ActiveParticipants() []models.RoomParticipant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RoomParticipant
	for _, p := range s.participants {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// AllParticipants returns every membership row, active or not.
func (s *Store) AllParticipants() []models.RoomParticipant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RoomParticipant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func deletedNow() gorm.DeletedAt {
	return gorm.DeletedAt{Time: time.Now(), Valid: true}
}

func copyUint(p *uint) *uint {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyUUID(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
