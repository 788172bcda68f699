package store

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventExists   = errors.New("event already exists")
	ErrInvalidDate   = errors.New("invalid date")
	ErrRangeTooLong  = errors.New("date range too long")
)
