package booking

import (
	"errors"
	"fmt"
)

var (
	ErrSlotUnavailable   = errors.New("slot no longer available")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrNotFound          = errors.New("appointment not found")
	ErrGateway           = errors.New("external gateway failure")
	ErrStorage           = errors.New("storage failure")
	ErrProviderBusy      = errors.New("mentor is handling another booking, please retry")
	ErrInvalidInput      = errors.New("invalid booking request")
)

// storageErr wraps a repository error as ErrStorage unless it already carries
// one of the engine's sentinels.
func storageErr(op string, err error) error {
	for _, known := range []error{ErrNotFound, ErrSlotUnavailable, ErrInvalidTransition, ErrStorage} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
