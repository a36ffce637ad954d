package game

import "errors"

// Validation errors: the request itself is malformed.
var (
	ErrInvalidCell     = errors.New("invalid-cell")
	ErrMissingUsername = errors.New("missing-username")
)

// State conflicts: the request is well-formed but the game cannot accept it now.
var (
	ErrNotActive       = errors.New("not-active")
	ErrAlreadyRevealed = errors.New("already-revealed")
	ErrStaleGame       = errors.New("stale-game")
)

// Internal failures. The engine wraps these in ErrInternal; prior state is untouched.
var (
	ErrInternal    = errors.New("internal")
	ErrBoardConfig = errors.New("board config: mines must be fewer than rows*cols-1")
	ErrMineCell    = errors.New("reveal: start cell is a mine")
)

// IsValidation reports whether err was caused by a malformed request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidCell) || errors.Is(err, ErrMissingUsername)
}

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotActive) || errors.Is(err, ErrAlreadyRevealed) || errors.Is(err, ErrStaleGame)
}

// Reason maps an engine error to the reason code delivered to the caller.
func Reason(err error) string {
	for _, e := range []error{ErrInvalidCell, ErrMissingUsername, ErrNotActive, ErrAlreadyRevealed, ErrStaleGame} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return ErrInternal.Error()
}
