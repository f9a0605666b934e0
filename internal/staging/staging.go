// Package staging owns the ordered collection of media pending submission
// for one form session. Exactly one set belongs to exactly one open form.
package staging

import (
	"errors"
	"fmt"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
	"github.com/JuanRG-20221039/paulofraire-media/internal/preview"
)

// ErrIndexOutOfRange reports a RemoveAt call with a bad index. This is a
// programming defect in the caller, not a user-facing condition.
var ErrIndexOutOfRange = errors.New("staging: index out of range")

// PendingMediaSet is the ordered, mutable staging collection for one form
// session. Insertion order is display and submission order; items are
// never sorted or deduplicated.
type PendingMediaSet struct {
	items      []*models.MediaItem
	handles    map[*models.MediaItem]*preview.Handle
	tombstones []string
	previews   *preview.Registry
}

// NewPendingMediaSet creates an empty set backed by the given preview
// registry
func NewPendingMediaSet(reg *preview.Registry) *PendingMediaSet {
	return &PendingMediaSet{
		handles:  make(map[*models.MediaItem]*preview.Handle),
		previews: reg,
	}
}

// AddLocal appends validated local files to the end of the sequence, each
// wrapped with a freshly allocated preview handle. Callers must have run
// the batch through the validator first.
func (s *PendingMediaSet) AddLocal(files ...*models.LocalFile) {
	for _, f := range files {
		h := s.previews.Allocate(f.Name)
		item := &models.MediaItem{
			Origin:     models.OriginLocal,
			Name:       f.Name,
			MimeType:   f.MimeType,
			SizeBytes:  f.SizeBytes,
			PreviewURL: h.URL(),
			Local:      f,
		}
		s.items = append(s.items, item)
		s.handles[item] = h
	}
}

// AddRemote appends an already-persisted item, used to pre-populate the
// set when editing an existing record
func (s *PendingMediaSet) AddRemote(id, url string, sizeBytes int64) {
	s.items = append(s.items, &models.MediaItem{
		Origin:     models.OriginRemote,
		RemoteID:   id,
		PreviewURL: url,
		SizeBytes:  sizeBytes,
	})
}

// RemoveAt removes the item at index. A local item's preview handle is
// released synchronously; a remote item's identifier is recorded as a
// tombstone so the next submission can tell the backend to delete it.
func (s *PendingMediaSet) RemoveAt(index int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.items))
	}

	item := s.items[index]
	if item.Origin == models.OriginLocal {
		if h, ok := s.handles[item]; ok {
			_ = s.previews.Release(h)
			delete(s.handles, item)
		}
	} else {
		s.tombstones = append(s.tombstones, item.RemoteID)
	}

	s.items = append(s.items[:index], s.items[index+1:]...)
	return nil
}

// Reset releases every local preview handle, clears tombstones and empties
// the sequence. Called on cancel and on successful submit; calling it
// twice is safe and never double-releases a handle.
func (s *PendingMediaSet) Reset() {
	s.releaseAll()
	s.items = nil
	s.tombstones = nil
}

// ReplaceWithRemote installs the server's authoritative representation
/// after a successful submit: every local preview handle is released, the
// tombstone list is cleared and the given remote items become the set.
func (s *PendingMediaSet) ReplaceWithRemote(items []*models.MediaItem) {
	s.releaseAll()
	s.items = items
	s.tombstones = nil
}

func (s *PendingMediaSet) releaseAll() {
	for item, h := range s.handles {
		_ = s.previews.Release(h)
		delete(s.handles, item)
	}
}

// Items returns the staged items in insertion order
func (s *PendingMediaSet) Items() []*models.MediaItem { return s.items }

// LocalFiles returns the staged local files in insertion order
func (s *PendingMediaSet) LocalFiles() []*models.LocalFile {
	var files []*models.LocalFile
	for _, item := range s.items {
		if item.Origin == models.OriginLocal {
			files = append(files, item.Local)
		}
	}
	return files
}

// Tombstones returns the remote identifiers scheduled for server-side
// deletion on the next successful submission
func (s *PendingMediaSet) Tombstones() []string { return s.tombstones }

// Count returns the number of staged items
func (s *PendingMediaSet) Count() int { return len(s.items) }

// TotalBytes returns the cumulative size of staged local items
func (s *PendingMediaSet) TotalBytes() int64 {
	var total int64
	for _, item := range s.items {
		if item.Origin == models.OriginLocal {
			total += item.SizeBytes
		}
	}
	return total
}
