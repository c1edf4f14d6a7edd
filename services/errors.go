// services/errors.go
package services

import "errors"

// Shared error taxonomy for the battle engine. Handlers map these to HTTP
// statuses; the battle stream maps them to error frames or close codes.
var (
	ErrBattleNotFound    = errors.New("battle not found")
	ErrGroupNotFound     = errors.New("study group not found")
	ErrNotGroupMember    = errors.New("not a group member")
	ErrNotParticipant    = errors.New("not a battle participant")
	ErrInvalidDamage     = errors.New("damage must be a positive integer within the per-hit limit")
	ErrInvalidHealth     = errors.New("max health must be a positive integer")
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 10")
	ErrBattleClosed      = errors.New("battle already completed")
	ErrAlreadyJoined     = errors.New("already joined battle")
	ErrGroupFull         = errors.New("study group is full")
)
