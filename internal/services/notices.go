package services

import (
	"errors"
	"time"
)

type NoticeKind string

const (
	NoticePersistenceFailure NoticeKind = "persistence_failure"
	NoticeCorruptState       NoticeKind = "corrupt_state"
)

// Notice is a transient message for the UI about a storage problem.
type Notice struct {
	Kind       NoticeKind
	MessageKey string
	Params     map[string]string
	At         time.Time
}

const maxPendingNotices = 50

func noticeFor(err error, at time.Time) (Notice, bool) {
	var corrupt *CorruptStateError
	switch {
	case errors.As(err, &corrupt):
		return Notice{
			Kind:       NoticeCorruptState,
			MessageKey: "notice.corrupt_state",
			Params:     map[string]string{"key": corrupt.Key, "sidecar": corrupt.Sidecar},
			At:         at,
		}, true
	case errors.Is(err, ErrPersistenceFailed):
		return Notice{
			Kind:       NoticePersistenceFailure,
			MessageKey: "notice.persistence_failure",
			At:         at,
		}, true
	default:
		return Notice{}, false
	}
}
