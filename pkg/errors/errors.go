package errors

import "errors"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidName    = errors.New("player name is required")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidTable   = errors.New("invalid table number")
	ErrInvalidSeat    = errors.New("invalid seat index")
)
