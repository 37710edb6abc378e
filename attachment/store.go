// Package attachment owns the ephemeral media attached to one message draft.
//
// Each attachment holds exactly one transient handle over its bytes. Handles
// are released on removal, on draft discard (ReleaseAll), or by the caller a
// draft's ownership was transferred to (Detach).
package attachment

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"campuschat/models"
)

// FileDescriptor describes one file selected for attachment.
type FileDescriptor struct {
	Name        string
	ContentType string
	Data        []byte
}

// PickerFunc opens a platform-specific picker and returns selected files.
type PickerFunc func() ([]FileDescriptor, error)

// Attachment pairs a stable ref with the resource that owns its bytes.
type Attachment struct {
	Ref      models.AttachmentRef
	resource Resource
}

// Resource exposes the attachment's transient handle.
func (a *Attachment) Resource() Resource {
	return a.resource
}

// Store tracks the attachments of one in-progress draft.
type Store struct {
	mu          sync.Mutex
	items       []*Attachment
	index       map[string]*Attachment
	outstanding int
}

// NewStore creates an empty draft attachment store.
func NewStore() *Store {
	return &Store{index: make(map[string]*Attachment)}
}

// Add classifies the file, allocates a transient handle, and returns a
// stable draft-local ref.
func (s *Store) Add(fd FileDescriptor) (models.AttachmentRef, error) {
	name := strings.TrimSpace(fd.Name)
	if name == "" {
		return models.AttachmentRef{}, errors.New("attachment name is required")
	}
	if len(fd.Data) == 0 {
		return models.AttachmentRef{}, errors.New("attachment data is required")
	}

	ref := models.AttachmentRef{
		ID:          uuid.NewString(),
		SourceKind:  classifySource(fd.ContentType, name),
		DisplayName: name,
		SizeBytes:   int64(len(fd.Data)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := NewHandle(ref.ID, fd.Data, func() {
		s.mu.Lock()
		s.outstanding--
		s.mu.Unlock()
	})
	item := &Attachment{Ref: ref, resource: handle}
	s.items = append(s.items, item)
	s.index[ref.ID] = item
	s.outstanding++

	return ref, nil
}

// AddFromPicker runs the picker and attaches every selected file.
func (s *Store) AddFromPicker(picker PickerFunc) ([]models.AttachmentRef, error) {
	if picker == nil {
		return nil, errors.New("file picker is not configured")
	}

	descriptors, err := picker()
	if err != nil {
		return nil, err
	}

	refs := make([]models.AttachmentRef, 0, len(descriptors))
	for _, fd := range descriptors {
		ref, err := s.Add(fd)
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Remove revokes one attachment's handle. Removing an unknown id is a no-op.
func (s *Store) Remove(attachmentID string) {
	s.mu.Lock()
	item, ok := s.index[attachmentID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.index, attachmentID)
	for i := range s.items {
		if s.items[i].Ref.ID == attachmentID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	_ = item.resource.Release()
}

// ReleaseAll frees every remaining handle. A second call finds an empty
// draft and does nothing.
func (s *Store) ReleaseAll() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.index = make(map[string]*Attachment)
	s.mu.Unlock()

	for _, item := range items {
		_ = item.resource.Release()
	}
}

// Detach transfers ownership of the current attachments to the caller and
// empties the draft without releasing anything. The caller is responsible
// for eventual release once the upload settles.
func (s *Store) Detach() []*Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items
	s.items = nil
	s.index = make(map[string]*Attachment)
	return items
}

// List returns the current attachment refs in insertion order.
func (s *Store) List() []models.AttachmentRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AttachmentRef, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Ref)
	}
	return out
}

// Len returns the number of attachments in the draft.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Outstanding returns the count of allocated but unreleased handles,
// including detached ones still awaiting release by their new owner.
func (s *Store) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

func classifySource(contentType, name string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return models.SourceKindImage
	case strings.HasPrefix(ct, "video/"):
		return models.SourceKindVideo
	case strings.HasPrefix(ct, "audio/"):
		return models.SourceKindAudio
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp", ".tiff", ".tif":
		return models.SourceKindImage
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return models.SourceKindVideo
	case ".mp3", ".ogg", ".wav", ".m4a", ".flac", ".opus":
		return models.SourceKindAudio
	}
	return models.SourceKindFile
}
