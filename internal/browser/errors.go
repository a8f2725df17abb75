// File: internal/browser/errors.go
package browser

import (
	"errors"
	"strings"
)

// Sentinel errors for the interaction layer. Lower layers absorb most of
// these into boolean results; they surface only where the caller needs to
// distinguish failure modes.
var (
	// ErrNotFound means resolution timed out without a match.
	ErrNotFound = errors.New("element not found")
	// ErrStale means the handle references a node no longer attached to the
	// live document.
	ErrStale = errors.New("element reference is stale")
	// ErrIntercepted means a pointer click was blocked by an overlapping
	// element.
	ErrIntercepted = errors.New("click intercepted by another element")
	// ErrActionFailed means every retry strategy was exhausted.
	ErrActionFailed = errors.New("action failed after all retries")
)

// staleMarkers are the message fragments the DevTools protocol produces when
// a node id no longer resolves.
var staleMarkers = []string{
	"could not find node",
	"no node with given id",
	"node with given id does not belong to the document",
	"could not resolve node",
	"cannot find context with specified id",
	"detached",
}

// IsStale reports whether the error indicates a dead node reference, either
// our own sentinel or the driver's message shapes.
func IsStale(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStale) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsIntercepted reports whether the error indicates a click blocked by
// another element.
func IsIntercepted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrIntercepted) ||
		strings.Contains(strings.ToLower(err.Error()), "intercept")
}
