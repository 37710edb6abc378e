// Package composer builds outbound message intents from draft text, media
// attachments, and voice capture.
package composer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"campuschat/attachment"
	"campuschat/models"
)

// DefaultTypingDelay is the quiet window before a typing signal fires.
const DefaultTypingDelay = 400 * time.Millisecond

// Clip is one captured voice recording.
type Clip struct {
	Data        []byte
	ContentType string
}

// Recorder drives the platform microphone capture session.
type Recorder interface {
	Start() error
	Stop() (Clip, error)
}

// MessageIntent is an outbound draft handed off for upload together with the
// attachment resources backing it. The receiver owns those resources and
// releases them once the upload settles.
type MessageIntent struct {
	ID          string
	Text        string
	Attachments []*attachment.Attachment
}

// Refs returns the wire-level attachment refs for the upload payload.
func (m *MessageIntent) Refs() []models.AttachmentRef {
	refs := make([]models.AttachmentRef, 0, len(m.Attachments))
	for _, item := range m.Attachments {
		refs = append(refs, item.Ref)
	}
	return refs
}

// ReleaseAttachments frees every attachment resource behind the intent.
// Safe to call more than once.
func (m *MessageIntent) ReleaseAttachments() {
	for _, item := range m.Attachments {
		_ = item.Resource().Release()
	}
}

// Intent converts to the wire model.
func (m *MessageIntent) Intent() models.MessageIntent {
	return models.MessageIntent{
		ID:          m.ID,
		Text:        m.Text,
		Attachments: m.Refs(),
	}
}

// Config configures a Composer.
type Config struct {
	// Recorder captures voice clips. Optional; recording calls fail without it.
	Recorder Recorder
	// OnTyping is the typing side channel signal. Optional.
	OnTyping func()
	// TypingDelay is the debounce quiet window before OnTyping fires.
	TypingDelay time.Duration
	// AfterFunc schedules the typing timer. Defaults to time.AfterFunc;
	// injectable for tests.
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

func (c Config) withDefaults() Config {
	if c.TypingDelay <= 0 {
		c.TypingDelay = DefaultTypingDelay
	}
	if c.AfterFunc == nil {
		c.AfterFunc = time.AfterFunc
	}
	return c
}

// Composer owns one message draft and its voice-capture state machine.
type Composer struct {
	cfg   Config
	store *attachment.Store

	mu          sync.Mutex
	text        string
	recording   bool
	disabled    bool
	typingTimer *time.Timer
}

// New creates a composer over a fresh attachment store.
func New(config Config) *Composer {
	return &Composer{
		cfg:   config.withDefaults(),
		store: attachment.NewStore(),
	}
}

// Attachments exposes the draft's attachment store.
func (c *Composer) Attachments() *attachment.Store {
	return c.store
}

// Text returns the current draft text.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// SetDisabled blocks Submit while a send is in flight elsewhere.
func (c *Composer) SetDisabled(disabled bool) {
	c.mu.Lock()
	c.disabled = disabled
	c.mu.Unlock()
}

// Recording reports whether voice capture is active.
func (c *Composer) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// UpdateText replaces the draft text and resets the typing debounce timer.
// One pending timer exists per composer; each keystroke pushes it out.
func (c *Composer) UpdateText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.text = text

	if c.cfg.OnTyping == nil {
		return
	}
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = c.cfg.AfterFunc(c.cfg.TypingDelay, c.cfg.OnTyping)
}

// StartRecording begins voice capture. Calling it while already recording is
// a no-op, guarding against duplicate UI triggers.
func (c *Composer) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		return nil
	}
	if c.cfg.Recorder == nil {
		return errors.New("composer: no recorder configured")
	}

	if err := c.cfg.Recorder.Start(); err != nil {
		return fmt.Errorf("start voice capture: %w", err)
	}
	c.recording = true
	return nil
}

// StopRecording ends voice capture and attaches the captured clip as an
// audio attachment. Calling it while idle is a no-op.
func (c *Composer) StopRecording() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.recording = false
	recorder := c.cfg.Recorder
	c.mu.Unlock()

	clip, err := recorder.Stop()
	if err != nil {
		return fmt.Errorf("stop voice capture: %w", err)
	}

	contentType := clip.ContentType
	if contentType == "" {
		contentType = "audio/ogg"
	}
	name := fmt.Sprintf("voice-%s.ogg", time.Now().Format("20060102-150405"))
	if _, err := c.store.Add(attachment.FileDescriptor{
		Name:        name,
		ContentType: contentType,
		Data:        clip.Data,
	}); err != nil {
		return fmt.Errorf("attach voice clip: %w", err)
	}
	return nil
}

// Submit produces a message intent from the draft, or nil when there is
// nothing to send (empty trimmed text and zero attachments) or the composer
// is disabled. On success the draft is cleared and ownership of the
// attachment resources transfers to the returned intent.
func (c *Composer) Submit() *MessageIntent {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return nil
	}
	text := strings.TrimSpace(c.text)
	c.mu.Unlock()

	if text == "" && c.store.Len() == 0 {
		return nil
	}

	attachments := c.store.Detach()

	c.mu.Lock()
	c.text = ""
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.mu.Unlock()

	return &MessageIntent{
		ID:          ulid.Make().String(),
		Text:        text,
		Attachments: attachments,
	}
}

// Discard abandons the draft, releasing every attachment handle.
func (c *Composer) Discard() {
	c.mu.Lock()
	c.text = ""
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.mu.Unlock()

	c.store.ReleaseAll()
}
