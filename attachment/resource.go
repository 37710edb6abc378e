package attachment

import "sync"

// Resource is a client-local, revocable reference to the binary media data
// backing an attachment preview. Exactly one resource exists per attachment
// and it must be released exactly once.
type Resource interface {
	ID() string
	Release() error
}

// Handle is the default Resource implementation. It owns the attachment's
// bytes and guards against double release.
type Handle struct {
	id string

	mu       sync.Mutex
	data     []byte
	released bool
	onFree   func()
}

// NewHandle wraps raw media bytes in a releasable handle. onFree runs once,
// on the first Release.
func NewHandle(id string, data []byte, onFree func()) *Handle {
	return &Handle{id: id, data: data, onFree: onFree}
}

// ID returns the attachment's draft-local id.
func (h *Handle) ID() string {
	return h.id
}

// Bytes returns the backing data for preview/upload while the handle lives.
// After Release it returns nil.
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	return h.data
}

// Release frees the backing data. The second and later calls are no-ops.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.data = nil
	onFree := h.onFree
	h.onFree = nil
	h.mu.Unlock()

	if onFree != nil {
		onFree()
	}
	return nil
}

// Released reports whether the handle has been freed.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
