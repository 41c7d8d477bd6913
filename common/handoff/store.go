// Package handoff provides the short-lived, session-scoped key/value buffer
// used to pass state between the upload view and the results view.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL bounds how long a session's entries survive
const DefaultTTL = 30 * time.Minute

// Entry keys used by the web front
const (
	KeyUpload   = "upload"
	KeyFlow     = "flow"
	KeyResult   = "result"
	KeyImage    = "image"
	KeyFeedback = "feedback"
)

// Lock names for per-session in-flight guards
const (
	LockClassify = "classify"
	LockFeedback = "feedback"
)

// ErrNotFound is returned when a key has no live value
var ErrNotFound = errors.New("handoff: entry not found")

// Store is a session-scoped key/value store with expiry and simple locks
type Store interface {
	// Put stores value under key for the session, replacing any previous value
	Put(ctx context.Context, sessionID, key string, value []byte) error
	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	// Delete removes keys of the session; missing keys are ignored
	Delete(ctx context.Context, sessionID string, keys ...string) error
	// Acquire takes the named lock for the session if it is free.
	// The lock expires after ttl even if never released.
	Acquire(ctx context.Context, sessionID, name string, ttl time.Duration) (bool, error)
	// Locked reports whether the named lock is currently held
	Locked(ctx context.Context, sessionID, name string) (bool, error)
	// Release frees the named lock
	Release(ctx context.Context, sessionID, name string) error
	Close() error
}

// PutJSON stores v as JSON
func PutJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("handoff marshal %s: %w", key, err)
	}
	return s.Put(ctx, sessionID, key, data)
}

// GetJSON loads the JSON value under key into dest.
// It returns false without error when the key is absent.
func GetJSON(ctx context.Context, s Store, sessionID, key string, dest any) (bool, error) {
	data, err := s.Get(ctx, sessionID, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("handoff unmarshal %s: %w", key, err)
	}
	return true, nil
}

// ClearResults removes everything the upload flow handed to the results view
func ClearResults(ctx context.Context, s Store, sessionID string) error {
	return s.Delete(ctx, sessionID, KeyResult, KeyImage, KeyFeedback)
}
