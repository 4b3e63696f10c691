package usecase

import "errors"

var (
	ErrEmptyPatch   = errors.New("snapshot patch has no fields")
	ErrPersist      = errors.New("persist snapshot")
	ErrActorStopped = errors.New("snapshot actor stopped")
	ErrEmptyCycle   = errors.New("no symbol fetched this cycle")
	ErrSlowConsumer = errors.New("channel send queue full")
	ErrNoChannel    = errors.New("channel not registered")
)
