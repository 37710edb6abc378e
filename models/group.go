package models

// Group is a chat group with its membership roster. The roster is mutated
// only through explicit server operations; the server-returned object is the
// single source of truth after any mutation.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedByID string    `json:"created_by_id"`
	Members     []UserRef `json:"members"`
}

// HasMember reports whether a user is on the group's roster.
func (g *Group) HasMember(userID string) bool {
	if g == nil || userID == "" {
		return false
	}
	for _, member := range g.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand out group state without
// sharing the members slice.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Members = make([]UserRef, len(g.Members))
	copy(out.Members, g.Members)
	return &out
}
