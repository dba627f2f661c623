package domain

import "errors"

// Domain errors
var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrArticleNotFound     = errors.New("article not found")
	ErrRunNotFound         = errors.New("simulation run not found")
	ErrUnknownSlotCode     = errors.New("slot code is not part of the distance index")
	ErrNoDestinationSlot   = errors.New("no destination slot available")
	ErrCapacityExhausted   = errors.New("ground zone capacity exhausted after recovery")
	ErrNoMixedSlot         = errors.New("no mixed-article overflow slot configured")
	ErrInvalidStrategy     = errors.New("invalid strategy")
	ErrInvalidArticleID    = errors.New("invalid article identifier")
	ErrInvalidRequest      = errors.New("invalid simulation request")
	ErrInvalidClassTable   = errors.New("invalid class threshold table")
	ErrInvalidDistanceData = errors.New("invalid distance matrix")
	ErrContentAPIDisabled  = errors.New("product content API is not configured")
)
