package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrUnknownRegion   = errors.New("unknown region")
	ErrInvalidInput    = errors.New("invalid input")
)
