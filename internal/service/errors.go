package service

import (
	"errors"

	"github.com/rs/zerolog/log"
)

const internalErrorMessage = "Internal server error"

// Kind groups domain errors by how callers should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindForbidden
	KindNotFound
	KindInvalidInput
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error is a domain failure with a stable code and client-facing message.
// Both the HTTP and the real-time surface present Message verbatim.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrAlreadyInRoom    = newError(KindConflict, "ALREADY_IN_ROOM", "User is already participating in a room")
	ErrRoomFull         = newError(KindConflict, "ROOM_FULL", "Room is full")
	ErrRoomJoinConflict = newError(KindConflict, "ROOM_JOIN_CONFLICT", "Room was deleted while joining")

	ErrNotRoomCreator       = newError(KindForbidden, "NOT_ROOM_CREATOR", "Only the room creator can perform this action")
	ErrCannotLeaveAsCreator = newError(KindForbidden, "CANNOT_LEAVE_AS_CREATOR", "Room creator cannot leave the room; transfer the room or delete it instead")
	ErrNoMovePermission     = newError(KindForbidden, "NO_MOVE_PERMISSION", "You do not have permission to move this token")
	ErrNotParticipant       = newError(KindForbidden, "NOT_PARTICIPANT", "User is not a participant of this room")

	ErrRoomNotFound        = newError(KindNotFound, "ROOM_NOT_FOUND", "Room not found")
	ErrParticipantNotFound = newError(KindNotFound, "PARTICIPANT_NOT_FOUND", "Participant not found")
	ErrTokenNotFound       = newError(KindNotFound, "TOKEN_NOT_FOUND", "Token not found")
	ErrUserNotFound        = newError(KindNotFound, "USER_NOT_FOUND", "User not found")

	ErrInvalidParticipantRole = newError(KindInvalidInput, "INVALID_PARTICIPANT_ROLE", "Invalid participant role")
	ErrPasswordRequired       = newError(KindInvalidInput, "PASSWORD_REQUIRED", "Room password is required")
	ErrPasswordMismatch       = newError(KindInvalidInput, "PASSWORD_MISMATCH", "Room password does not match")
	ErrCannotTransferToSelf   = newError(KindInvalidInput, "CANNOT_TRANSFER_TO_SELF", "Cannot transfer the room to yourself")
	ErrTargetNotInRoom        = newError(KindInvalidInput, "TARGET_NOT_IN_ROOM", "Target user is not in the room")
	ErrNotInRoom              = newError(KindInvalidInput, "NOT_IN_ROOM", "Join the room on this connection first")
	ErrInvalidMessage         = newError(KindInvalidInput, "INVALID_MESSAGE", "Message must be between 1 and 1000 characters")
	ErrInvalidRoomID          = newError(KindInvalidInput, "INVALID_ROOM_ID", "Invalid room id")
	ErrMalformedEvent         = newError(KindInvalidInput, "MALFORMED_EVENT", "Malformed event")

	ErrTooManyPasswordAttempts = newError(KindTooManyRequests, "TOO_MANY_PASSWORD_ATTEMPTS", "Too many wrong password attempts; try again later")

	ErrEmailTaken         = newError(KindConflict, "EMAIL_TAKEN", "Email is already registered")
	ErrInvalidCredentials = newError(KindInvalidInput, "INVALID_CREDENTIALS", "Invalid email or password")
)

// KindOf reports the Kind of err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns the domain error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// ErrorMessage is the client-facing text for err. Internal failures are
// logged and replaced by a generic message.
func ErrorMessage(err error) string {
	if e, ok := AsError(err); ok {
		return e.Message
	}
	log.Error().Err(err).Msg("internal error")
	return internalErrorMessage
}
