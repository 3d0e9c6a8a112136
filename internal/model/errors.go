package model

import "errors"

// Common errors used across the application
var (
	// Lookup failures
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")

	// Uniqueness conflicts
	ErrEmailInUse = errors.New("email address is already in use")

	// Membership rule violations
	ErrPlayerInAnotherMatch = errors.New("player is already in another match")
	ErrPlayerAlreadyJoined  = errors.New("player is already in this match")
	ErrMatchNotOpen         = errors.New("match is not open")
	ErrMatchFull            = errors.New("match is full")
	ErrPlayerNotInMatch     = errors.New("player is not in this match")
	ErrMatchFinished        = errors.New("match is already finished")
	ErrMatchEmpty           = errors.New("match has no players")

	// Validation failures
	ErrNameRequired     = errors.New("name is required")
	ErrNicknameRequired = errors.New("nickname is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidStatus    = errors.New("invalid match status")
)
