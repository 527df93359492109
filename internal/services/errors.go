package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidSleepRange   = fmt.Errorf("%w: sleep end before start", ErrInvalidInput)
	ErrInvalidPumpSchedule = fmt.Errorf("%w: pump schedule", ErrInvalidInput)
	ErrSleepInProgress     = fmt.Errorf("%w: a sleep is already in progress", ErrInvalidInput)
	ErrNoOngoingSleep      = fmt.Errorf("%w: no sleep in progress", ErrInvalidInput)
	ErrUnknownAlarmKey     = fmt.Errorf("%w: unknown alarm key", ErrInvalidInput)
	ErrEventNotFound       = errors.New("event not found")
	ErrPersistenceFailed   = errors.New("persistence failed")
	ErrCorruptState        = errors.New("corrupt stored state")
)

// CorruptStateError names the key that failed to parse and where its raw
// content was preserved.
type CorruptStateError struct {
	Key     string
	Sidecar string
}

func (err *CorruptStateError) Error() string {
	return fmt.Sprintf("%v: %s preserved under %s", ErrCorruptState, err.Key, err.Sidecar)
}

func (err *CorruptStateError) Unwrap() error {
	return ErrCorruptState
}
