package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

type roomRepository struct{ s *Store }

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if _, ok := r.s.rooms[room.ID]; ok {
		return repository.ErrDuplicateEntry
	}
	now := time.Now()
	room.CreatedAt, room.UpdatedAt = now, now
	r.s.rooms[room.ID] = storedRoom(room)
	return nil
}

func (r *roomRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok || room.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return r.s.hydrateLocked(room), nil
}

func (r *roomRepository) FindByIDWithDeleted(_ context.Context, id uuid.UUID) (*models.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := storedRoom(&room)
	if room.CreatorID != nil {
		if u, ok := r.s.users[*room.CreatorID]; ok {
			out.Creator = &u
		}
	}
	return &out, nil
}

// FindByIDForUpdate needs no lock of its own: transactions are serialized.
func (r *roomRepository) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*models.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := storedRoom(&room)
	return &out, nil
}

func (r *roomRepository) Update(ctx context.Context, room *models.Room) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rooms[room.ID]; !ok {
		return repository.ErrNotFound
	}
	room.UpdatedAt = time.Now()
	r.s.rooms[room.ID] = storedRoom(room)
	return nil
}

func (r *roomRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	room, ok := r.s.rooms[id]
	if !ok || room.IsDeleted() {
		return nil
	}
	room.DeletedAt = deletedNow()
	r.s.rooms[id] = room
	return nil
}

func (r *roomRepository) FindAll(_ context.Context) ([]models.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rooms := make([]models.Room, 0, len(r.s.rooms))
	for _, room := range r.s.rooms {
		if room.IsDeleted() {
			continue
		}
		rooms = append(rooms, *r.s.hydrateLocked(room))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

// hydrateLocked attaches the creator and the active participants, the same
// shape the gorm repository preloads.
func (s *Store) hydrateLocked(room models.Room) *models.Room {
	out := storedRoom(&room)
	if room.CreatorID != nil {
		if u, ok := s.users[*room.CreatorID]; ok && !u.DeletedAt.Valid {
			out.Creator = &u
		}
	}
	out.Participants = s.activeByRoomLocked(room.ID)
	return &out
}

func (s *Store) activeByRoomLocked(roomID uuid.UUID) []models.RoomParticipant {
	var ps []models.RoomParticipant
	for _, p := range s.participants {
		if p.RoomID != roomID || !p.IsActive() {
			continue
		}
		if u, ok := s.users[p.UserID]; ok && !u.DeletedAt.Valid {
			p.User = &u
		}
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].JoinedAt.Before(ps[j].JoinedAt)
	})
	return ps
}

func storedRoom(room *models.Room) models.Room {
	out := *room
	out.CreatorID = copyUint(room.CreatorID)
	out.Creator = nil
	out.Participants = nil
	return out
}

type participantRepository struct{ s *Store }

func (r *participantRepository) Create(ctx context.Context, p *models.RoomParticipant) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.participants {
		if existing.UserID == p.UserID && existing.IsActive() {
			return repository.ErrDuplicateEntry
		}
	}
	r.s.nextParticipantID++
	p.ID = r.s.nextParticipantID
	if p.Role == "" {
		p.Role = models.RolePlayer
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	stored := *p
	stored.User = nil
	r.s.participants[p.ID] = stored
	return nil
}

func (r *participantRepository) FindActive(_ context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.participants {
		if p.RoomID == roomID && p.UserID == userID && p.IsActive() {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *participantRepository) FindActiveByRoom(_ context.Context, roomID uuid.UUID) ([]models.RoomParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.activeByRoomLocked(roomID), nil
}

func (r *participantRepository) CountActiveByRoom(_ context.Context, roomID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, p := range r.s.participants {
		if p.RoomID == roomID && p.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r *participantRepository) CountActiveByUser(_ context.Context, userID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, p := range r.s.participants {
		if p.UserID == userID && p.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r *participantRepository) Leave(ctx context.Context, p *models.RoomParticipant) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.participants[p.ID]
	if !ok || !stored.IsActive() {
		return nil
	}
	stored.LeftAt = deletedNow()
	r.s.participants[p.ID] = stored
	p.LeftAt = stored.LeftAt
	return nil
}

func (r *participantRepository) LeaveAllByRoom(ctx context.Context, roomID uuid.UUID) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	left := deletedNow()
	for id, p := range r.s.participants {
		if p.RoomID == roomID && p.IsActive() {
			p.LeftAt = left
			r.s.participants[id] = p
		}
	}
	return nil
}

func (r *participantRepository) UpdateRole(ctx context.Context, id uint, role models.ParticipantRole) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.participants[id]
	if !ok || !p.IsActive() {
		return repository.ErrNotFound
	}
	p.Role = role
	r.s.participants[id] = p
	return nil
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEntry
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	r.s.users[user.ID] = storedUser(user)
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	out := storedUser(&u)
	return &out, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email && !u.DeletedAt.Valid {
			out := storedUser(&u)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	if user.CreatedRoomID != nil {
		for id, u := range r.s.users {
			if id != user.ID && u.CreatedRoomID != nil && *u.CreatedRoomID == *user.CreatedRoomID {
				return repository.ErrDuplicateEntry
			}
		}
	}
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = storedUser(user)
	return nil
}

// DeleteUser soft-deletes an account.
func (s *Store) DeleteUser(id uint) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.DeletedAt = deletedNow()
		s.users[id] = u
	}
}

func storedUser(u *models.User) models.User {
	out := *u
	out.CreatedRoomID = copyUUID(u.CreatedRoomID)
	return out
}

type messageRepository struct{ s *Store }

func (r *messageRepository) Create(ctx context.Context, m *models.ChatMessage) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextMessageID++
	m.ID = r.s.nextMessageID
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	stored := *m
	stored.Sender = nil
	r.s.messages = append(r.s.messages, stored)
	return nil
}

func (r *messageRepository) FindRecentByRoom(_ context.Context, roomID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.ChatMessage
	for i := len(r.s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m := r.s.messages[i]; m.RoomID == roomID {
			if u, ok := r.s.users[m.SenderID]; ok {
				m.Sender = &u
			}
			out = append(out, m)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type tokenRepository struct{ s *Store }

func (r *tokenRepository) Create(ctx context.Context, t *models.Token) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := *t
	stored.OwnerID = copyUint(t.OwnerID)
	r.s.tokens[t.ID] = stored
	return nil
}

func (r *tokenRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.OwnerID = copyUint(t.OwnerID)
	return &t, nil
}

func (r *tokenRepository) FindByRoom(_ context.Context, roomID uuid.UUID) ([]models.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Token
	for _, t := range r.s.tokens {
		if t.RoomID == roomID {
			t.OwnerID = copyUint(t.OwnerID)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *tokenRepository) UpdatePosition(ctx context.Context, t *models.Token) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tokens[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.X, stored.Y = t.X, t.Y
	stored.UpdatedAt = time.Now()
	r.s.tokens[t.ID] = stored
	return nil
}
