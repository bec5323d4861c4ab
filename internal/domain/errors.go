package domain

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrStorageFault matches every *StorageFault.
	ErrStorageFault = errors.New("storage fault")
	// ErrFetch matches every *FetchError.
	ErrFetch = errors.New("catalog fetch failed")
	// ErrInvariantViolation is returned when a cart invariant would be broken.
	ErrInvariantViolation = errors.New("invariant violation")
)

// StorageFault wraps a durable-store failure during a cart operation.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("storage fault: %s: %v", e.Op, e.Err)
}

func (e *StorageFault) Unwrap() error { return e.Err }

func (e *StorageFault) Is(target error) bool { return target == ErrStorageFault }

// FetchError wraps a product source failure. Message returns the cause text
// shown to the user.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

func (e *FetchError) Message() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Err.Error()
}
