package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

// State is a session controller state
type State int

const (
	Idle State = iota
	Resolving
	Presenting
	Dismissed
	Failed
	Completed
	Skipped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Presenting:
		return "presenting"
	case Dismissed:
		return "dismissed"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the lifecycle has ended. Failed is terminal but
// recoverable: Present may be called again.
func (s State) Terminal() bool {
	switch s {
	case Dismissed, Failed, Completed, Skipped:
		return true
	}
	return false
}

// Policy decides how the cache and the backend are consulted
type Policy string

const (
	// CacheFirst serves a cached flow immediately and refreshes the cache
	// in the background
	CacheFirst Policy = "cache_first"
	// NetworkFirst asks the backend and falls back to the cache on failure
	NetworkFirst Policy = "network_first"
	// NetworkOnly never reads or writes cached resolutions. Completion
	// state is still persisted.
	NetworkOnly Policy = "network_only"
)

// ParsePolicy accepts the config spellings (cache_first, cache-first, ...)
func ParsePolicy(s string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", string(NetworkFirst):
		return NetworkFirst, nil
	case string(CacheFirst):
		return CacheFirst, nil
	case string(NetworkOnly):
		return NetworkOnly, nil
	}
	return "", fmt.Errorf("unknown cache policy %q", s)
}

var (
	// ErrInvalidTransition is returned when an operation is not valid in
	// the current state
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrSuperseded is returned by Present when the presentation was
	// abandoned or reset before resolution finished
	ErrSuperseded = errors.New("presentation superseded")
	// ErrUnknownElement is returned by Tap for ids not on the current screen
	ErrUnknownElement = errors.New("element not on current screen")
	// ErrAtFirstScreen is returned by Back with no history
	ErrAtFirstScreen = errors.New("already at first screen")
	// ErrUnknownScreen is returned when navigating to a missing screen id
	ErrUnknownScreen = errors.New("unknown screen")
)

func invalid(op string, from State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, from)
}
