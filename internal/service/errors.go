package service

import (
	"errors"

	"github.com/emrgen/servicecatalog/internal/lookup"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
)

var (
	// ErrReferentialConflict is returned when a cascade cannot complete or a restore is vetoed.
	ErrReferentialConflict = errors.New("referential conflict")
	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNothingToCopy is returned when a root has no version that can serve as a template.
	ErrNothingToCopy = errors.New("root has no draft, modified or published version")
	// ErrVersionChainTooLong is returned when a version chain walk does not terminate.
	ErrVersionChainTooLong = errors.New("version chain does not terminate")
)

const (
	ReasonInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ReasonReferentialConflict    = "REFERENTIAL_CONFLICT"
	ReasonStaleState             = "STALE_STATE"
	ReasonNotFound               = "NOT_FOUND"
	ReasonInvalidArgument        = "INVALID_ARGUMENT"
	ReasonInternal               = "INTERNAL"
)

// ReasonCode maps an error returned by the service to a stable reason code.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, publishing.ErrInvalidStateTransition):
		return ReasonInvalidStateTransition
	case errors.Is(err, ErrReferentialConflict):
		return ReasonReferentialConflict
	case errors.Is(err, store.ErrStaleState):
		return ReasonStaleState
	case errors.Is(err, store.ErrNotFound), errors.Is(err, publishing.ErrSnapshotNotInRoot):
		return ReasonNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, lookup.ErrUnknownLanguage), errors.Is(err, ErrNothingToCopy):
		return ReasonInvalidArgument
	}

	return ReasonInternal
}
