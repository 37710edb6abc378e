package models

// UserRef identifies a user referenced by a message sender, a group roster,
// or a candidate search result.
type UserRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}
