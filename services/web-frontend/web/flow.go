package web

import (
	"errors"
	"fmt"
)

// UploadState is a state of the upload flow
type UploadState string

const (
	StateEmpty       UploadState = "empty"
	StateSelected    UploadState = "selected"
	StateClassifying UploadState = "classifying"
	StateError       UploadState = "error"
)

// UploadEvent drives the upload flow
type UploadEvent string

const (
	EventSelect  UploadEvent = "select"
	EventRemove  UploadEvent = "remove"
	EventConfirm UploadEvent = "confirm"
	EventSucceed UploadEvent = "succeed"
	EventFail    UploadEvent = "fail"
)

// ErrInvalidTransition is returned for events a state does not accept
var ErrInvalidTransition = errors.New("invalid upload flow transition")

// Selecting an invalid file is not an event: it leaves the state unchanged.
// A successful classification hands off and leaves the flow empty.
var uploadTransitions = map[UploadState]map[UploadEvent]UploadState{
	StateEmpty: {
		EventSelect: StateSelected,
	},
	StateSelected: {
		EventSelect:  StateSelected,
		EventRemove:  StateEmpty,
		EventConfirm: StateClassifying,
	},
	StateClassifying: {
		EventSucceed: StateEmpty,
		EventFail:    StateError,
	},
	StateError: {
		EventSelect:  StateSelected,
		EventRemove:  StateEmpty,
		EventConfirm: StateClassifying,
	},
}

// Next returns the state reached from s on ev
func (s UploadState) Next(ev UploadEvent) (UploadState, error) {
	next, ok := uploadTransitions[s][ev]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s)
	}
	return next, nil
}

// HasSelection reports whether a file is held in this state
func (s UploadState) HasSelection() bool {
	return s == StateSelected || s == StateClassifying || s == StateError
}

// uploadFlow is the per-session state persisted between requests
type uploadFlow struct {
	State       UploadState `json:"state"`
	Error       string      `json:"error,omitempty"`
	ErrorStatus int         `json:"error_status,omitempty"`
}

func (f *uploadFlow) apply(ev UploadEvent) error {
	next, err := f.State.Next(ev)
	if err != nil {
		return err
	}
	f.State = next
	if next != StateError {
		f.Error = ""
		f.ErrorStatus = 0
	}
	return nil
}
