package services

import "errors"

// Base kinds. Every error a service returns on purpose wraps exactly one of
// them, so handlers map on the kind and not on the specific error.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrUserNotFound            = newError(ErrNotFound, "user not found")
	ErrFriendRequestNotFound   = newError(ErrNotFound, "friend request not found")
	ErrFriendRequestExists     = newError(ErrConflict, "friend request already pending")
	ErrFriendRequestNotPending = newError(ErrConflict, "friend request is not pending")
	ErrAlreadyFriends          = newError(ErrConflict, "already friends")
	ErrCannotFriendSelf        = newError(ErrValidation, "cannot send a friend request to yourself")
	ErrCannotBlockSelf         = newError(ErrValidation, "cannot block yourself")
	ErrUsernameRequired        = newError(ErrValidation, "username is required")
	ErrInvalidPresenceStatus   = newError(ErrValidation, "status must be one of Online, Offline, In Game")
	ErrSessionNotFound         = newError(ErrNotFound, "session not found")
)

type serviceError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &serviceError{kind: kind, msg: msg}
}

func (e *serviceError) Error() string {
	return e.msg
}

func (e *serviceError) Unwrap() error {
	return e.kind
}
