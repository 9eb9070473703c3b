package uplink

import (
	"errors"
	"fmt"

	"infinite-experiment/fmsuplink/internal/navlog"
)

var (
	// ErrInvalidSequence marks a procedure chunk somewhere other than the
	// first or last position.
	ErrInvalidSequence = errors.New("invalid chunk sequence")

	// ErrNotFound marks a required lookup that returned no candidates.
	ErrNotFound = errors.New("not found in navigation database")
)

// SynthesisError aborts a synthesis run. ChunkIndex is the position of the
// chunk that failed.
type SynthesisError struct {
	Code       string
	Message    string
	ChunkIndex int
	Kind       navlog.ChunkKind
	Err        error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at chunk %d (%s): %s: %v", e.Code, e.ChunkIndex, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s at chunk %d (%s): %s", e.Code, e.ChunkIndex, e.Kind, e.Message)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
