package service

import "errors"

var (
	// ErrNoActiveRound means no round window covers "now".
	ErrNoActiveRound = errors.New("no active round")
	// ErrAlreadyPlayed means the player already has a play for the round.
	ErrAlreadyPlayed = errors.New("already played this round")
	// ErrInvalidPick means a submitted pick is malformed.
	ErrInvalidPick = errors.New("invalid pick")
)
