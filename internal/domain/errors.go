package domain

import "errors"

// Session errors
var (
	ErrNotSignedIn        = errors.New("no active session")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Chat errors
var (
	ErrChatDisabled    = errors.New("chat is disabled for this room")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotRoomAdmin    = errors.New("only a room admin can perform this action")
)
