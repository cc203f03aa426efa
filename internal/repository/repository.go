package repository

import "tabletop_session/internal/storage"

type Repositories struct {
	Tx          Transactor
	User        UserRepository
	Room        RoomRepository
	Participant ParticipantRepository
	Message     MessageRepository
	Token       TokenRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		Tx:          NewTransactor(db),
		User:        NewUserRepository(db),
		Room:        NewRoomRepository(db),
		Participant: NewParticipantRepository(db),
		Message:     NewMessageRepository(db),
		Token:       NewTokenRepository(db),
	}
}
