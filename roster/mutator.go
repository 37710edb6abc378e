// Package roster manages one group's membership edits: candidate search with
// a debounced last-query-wins pipeline, an optimistic selection list, and
// creator-gated mutations whose results are replaced wholesale by the
// server-returned group.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"campuschat/api"
	"campuschat/models"
)

// DefaultSearchDelay is the quiet window before a candidate search fires.
const DefaultSearchDelay = 300 * time.Millisecond

var (
	// ErrNotAuthorized indicates a mutation attempted by a non-creator.
	ErrNotAuthorized = errors.New("roster: only the group creator may do this")
	// ErrAlreadySelected indicates a duplicate candidate selection.
	ErrAlreadySelected = errors.New("roster: candidate already selected")
	// ErrAlreadyMember indicates selecting a user who is already on the roster.
	ErrAlreadyMember = errors.New("roster: user is already a group member")
	// ErrNoGroup indicates the mutator's group was deleted or left.
	ErrNoGroup = errors.New("roster: no group loaded")
	// ErrNoSelection indicates SubmitAdd with an empty selection list.
	ErrNoSelection = errors.New("roster: no candidates selected")
)

var validate = validator.New()

// API is the subset of the REST client the mutator needs.
type API interface {
	SearchUsers(ctx context.Context, query string) ([]models.UserRef, error)
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) (*models.Group, error)
	RemoveGroupMember(ctx context.Context, groupID, userID string) (*models.Group, error)
	UpdateGroup(ctx context.Context, groupID string, patch api.GroupPatch) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupID string) error
	LeaveGroup(ctx context.Context, groupID string) error
	CreateNotification(ctx context.Context, notification models.Notification) error
}

// GroupEdit carries the editable group fields, validated before any call.
type GroupEdit struct {
	Name        string `validate:"required,min=1,max=80"`
	Description string `validate:"max=500"`
	IsPrivate   bool
}

// Config configures a Mutator.
type Config struct {
	API API
	// Group is the mutator's working copy; replaced by server responses.
	Group *models.Group
	// CurrentUserID gates creator-only mutations.
	CurrentUserID string
	// OnSearchResults receives filtered candidate lists. Stale result sets
	// are dropped before delivery, never after.
	OnSearchResults func([]models.UserRef)
	// SearchDelay is the debounce quiet window. Defaults to DefaultSearchDelay.
	SearchDelay time.Duration
	// AfterFunc schedules the debounce timer. Defaults to time.AfterFunc;
	// injectable for tests.
	AfterFunc func(d time.Duration, f func()) *time.Timer
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.SearchDelay <= 0 {
		c.SearchDelay = DefaultSearchDelay
	}
	if c.AfterFunc == nil {
		c.AfterFunc = time.AfterFunc
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Mutator owns one group's roster editing session.
type Mutator struct {
	cfg Config
	api API

	mu          sync.Mutex
	group       *models.Group
	selected    []models.UserRef
	searchSeq   uint64
	searchTimer *time.Timer
}

// NewMutator validates config and returns a mutator bound to one group.
func NewMutator(cfg Config) (*Mutator, error) {
	if cfg.API == nil {
		return nil, errors.New("roster: API is required")
	}
	if cfg.Group == nil {
		return nil, errors.New("roster: group is required")
	}
	if cfg.CurrentUserID == "" {
		return nil, errors.New("roster: current user id is required")
	}

	cfg = cfg.withDefaults()
	return &Mutator{
		cfg:   cfg,
		api:   cfg.API,
		group: cfg.Group.Clone(),
	}, nil
}

// Group returns a copy of the current group state, or nil after deletion.
func (m *Mutator) Group() *models.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.group.Clone()
}

// Selected returns the current candidate selection in selection order.
func (m *Mutator) Selected() []models.UserRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.UserRef, len(m.selected))
	copy(out, m.selected)
	return out
}

// SearchCandidates schedules a debounced candidate search. Each call
// supersedes any pending or in-flight query: only results for the most
// recent query ever reach OnSearchResults.
func (m *Mutator) SearchCandidates(ctx context.Context, query string) {
	m.mu.Lock()
	m.searchSeq++
	seq := m.searchSeq
	if m.searchTimer != nil {
		m.searchTimer.Stop()
	}
	m.searchTimer = m.cfg.AfterFunc(m.cfg.SearchDelay, func() {
		m.runSearch(ctx, seq, query)
	})
	m.mu.Unlock()
}

func (m *Mutator) runSearch(ctx context.Context, seq uint64, query string) {
	if !m.searchCurrent(seq) {
		return
	}

	var (
		results []models.UserRef
		err     error
	)
	if strings.TrimSpace(query) != "" {
		results, err = m.api.SearchUsers(ctx, query)
		if err != nil {
			m.cfg.Logger.Warn("candidate search failed", "query", query, "error", err)
			return
		}
	}

	m.mu.Lock()
	if seq != m.searchSeq {
		// A newer query superseded this one while it was in flight.
		m.mu.Unlock()
		return
	}
	filtered := make([]models.UserRef, 0, len(results))
	for _, user := range results {
		if m.group.HasMember(user.ID) || m.isSelected(user.ID) {
			continue
		}
		filtered = append(filtered, user)
	}
	deliver := m.cfg.OnSearchResults
	m.mu.Unlock()

	if deliver != nil {
		deliver(filtered)
	}
}

func (m *Mutator) searchCurrent(seq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return seq == m.searchSeq
}

// isSelected must be called with m.mu held.
func (m *Mutator) isSelected(userID string) bool {
	for _, s := range m.selected {
		if s.ID == userID {
			return true
		}
	}
	return false
}

// SelectCandidate adds a user to the pending selection list. Duplicate
// selections and existing members are rejected.
func (m *Mutator) SelectCandidate(user models.UserRef) error {
	if user.ID == "" {
		return errors.New("roster: candidate id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.group == nil {
		return ErrNoGroup
	}
	if m.group.HasMember(user.ID) {
		return ErrAlreadyMember
	}
	if m.isSelected(user.ID) {
		return ErrAlreadySelected
	}
	m.selected = append(m.selected, user)
	return nil
}

// DeselectCandidate removes a user from the selection list. Unknown ids are
// a no-op.
func (m *Mutator) DeselectCandidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.selected {
		if s.ID == userID {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			return
		}
	}
}

// authorize must be called with m.mu held.
func (m *Mutator) authorize() error {
	if m.group == nil {
		return ErrNoGroup
	}
	if m.group.CreatedByID != m.cfg.CurrentUserID {
		return ErrNotAuthorized
	}
	return nil
}

// SubmitAdd sends the selected candidates to the server. On success the
// local group is replaced by the canonical server group, the selection is
// cleared, and each added user gets an added_to_group notification. On
// failure the group and the selection are untouched.
func (m *Mutator) SubmitAdd(ctx context.Context) error {
	m.mu.Lock()
	if err := m.authorize(); err != nil {
		m.mu.Unlock()
		return err
	}
	if len(m.selected) == 0 {
		m.mu.Unlock()
		return ErrNoSelection
	}
	groupID := m.group.ID
	added := make([]models.UserRef, len(m.selected))
	copy(added, m.selected)
	m.mu.Unlock()

	ids := make([]string, len(added))
	for i, user := range added {
		ids[i] = user.ID
	}

	canonical, err := m.api.AddGroupMembers(ctx, groupID, ids)
	if err != nil {
		return fmt.Errorf("add members: %w", err)
	}

	m.mu.Lock()
	m.group = canonical.Clone()
	m.selected = nil
	groupName := m.group.Name
	m.mu.Unlock()

	m.notifyAdded(ctx, added, groupName)
	return nil
}

// notifyAdded emits a feed notification per added user. Delivery failure is
// logged only; the membership change already succeeded.
func (m *Mutator) notifyAdded(ctx context.Context, added []models.UserRef, groupName string) {
	for _, user := range added {
		notification := models.Notification{
			ID:           ulid.Make().String(),
			Type:         models.NotificationTypeAddedToGroup,
			Text:         fmt.Sprintf("You were added to %s", groupName),
			CreatedAtUTC: time.Now().UnixMilli(),
			RecipientID:  user.ID,
		}
		if err := m.api.CreateNotification(ctx, notification); err != nil {
			m.cfg.Logger.Warn("added_to_group notification failed",
				"user_id", user.ID, "group_name", groupName, "error", err)
		}
	}
}

// RemoveMember removes one user from the roster. Creator only.
func (m *Mutator) RemoveMember(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("roster: user id is required")
	}

	m.mu.Lock()
	if err := m.authorize(); err != nil {
		m.mu.Unlock()
		return err
	}
	groupID := m.group.ID
	m.mu.Unlock()

	canonical, err := m.api.RemoveGroupMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	m.mu.Lock()
	m.group = canonical.Clone()
	m.mu.Unlock()
	return nil
}

// EditGroup validates and applies a metadata edit. Creator only.
func (m *Mutator) EditGroup(ctx context.Context, edit GroupEdit) error {
	m.mu.Lock()
	if err := m.authorize(); err != nil {
		m.mu.Unlock()
		return err
	}
	groupID := m.group.ID
	m.mu.Unlock()

	if err := validate.Struct(edit); err != nil {
		return fmt.Errorf("invalid group edit: %w", err)
	}

	canonical, err := m.api.UpdateGroup(ctx, groupID, api.GroupPatch{
		Name:        edit.Name,
		Description: edit.Description,
		IsPrivate:   edit.IsPrivate,
	})
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	m.mu.Lock()
	m.group = canonical.Clone()
	m.mu.Unlock()
	return nil
}

// DeleteGroup deletes the group entirely. Creator only.
func (m *Mutator) DeleteGroup(ctx context.Context) error {
	m.mu.Lock()
	if err := m.authorize(); err != nil {
		m.mu.Unlock()
		return err
	}
	groupID := m.group.ID
	m.mu.Unlock()

	if err := m.api.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	m.mu.Lock()
	m.group = nil
	m.selected = nil
	m.mu.Unlock()
	return nil
}

// Leave removes the current user from the group. Any member may leave; the
// creator gate does not apply.
func (m *Mutator) Leave(ctx context.Context) error {
	m.mu.Lock()
	if m.group == nil {
		m.mu.Unlock()
		return ErrNoGroup
	}
	groupID := m.group.ID
	m.mu.Unlock()

	if err := m.api.LeaveGroup(ctx, groupID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}

	m.mu.Lock()
	m.group = nil
	m.selected = nil
	m.mu.Unlock()
	return nil
}
