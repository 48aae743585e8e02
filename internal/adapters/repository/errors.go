package repository

import "errors"

// Sentinel kinds for standings errors.
var (
	ErrNotFound       = errors.New("athlete not found")
	ErrNoneAhead      = errors.New("athlete leads the standings")
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrInvalidScore   = errors.New("score must be finite")
	ErrUnknownVariant = errors.New("no standings for variant")
)
