package cascade

import "errors"

var (
	ErrNotFound               = errors.New("cascade root not found")
	ErrInvalidTarget          = errors.New("cascade target must be a terminal status")
	ErrUnsupportedRoot        = errors.New("cascade root must be a plan, milestone or initiative")
	ErrConcurrentModification = errors.New("hierarchy changed since the cascade was planned")
	ErrActorRequired          = errors.New("cascade actor is required")
)
