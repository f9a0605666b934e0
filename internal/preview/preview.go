// Package preview manages temporary preview handles for staged local files.
// A handle is the analog of a browser object URL: allocated once when a
// file is staged, released exactly once when the file leaves the set.
package preview

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyReleased is returned when a handle is released twice
	ErrAlreadyReleased = errors.New("preview handle already released")
	// ErrUnknownHandle is returned for a handle this registry did not allocate
	ErrUnknownHandle = errors.New("unknown preview handle")
)

// Handle is one live preview resource. Handles are exclusively owned by
// their media item and must never be used after release.
type Handle struct {
	id       string
	url      string
	released bool
}

// URL returns the preview URL for the handle
func (h *Handle) URL() string { return h.url }

// Released reports whether the handle has been released
func (h *Handle) Released() bool { return h.released }

// Registry tracks every live preview handle for one form session
type Registry struct {
	handles map[string]*Handle
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Allocate creates a fresh handle. Each staged local file gets exactly one.
func (r *Registry) Allocate(name string) *Handle {
	id := uuid.New().String()
	h := &Handle{
		id:  id,
		url: "preview://" + id,
	}
	r.handles[id] = h
	return h
}

// Release frees a handle. Releasing twice is a programming defect and
// reported as ErrAlreadyReleased.
func (r *Registry) Release(h *Handle) error {
	if h == nil {
		return ErrUnknownHandle
	}
	tracked, ok := r.handles[h.id]
	if !ok || tracked != h {
		if h.released {
			return ErrAlreadyReleased
		}
		return ErrUnknownHandle
	}
	h.released = true
	delete(r.handles, h.id)
	return nil
}

// Active returns the number of live handles
func (r *Registry) Active() int { return len(r.handles) }
