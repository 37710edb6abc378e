package models

import "fmt"

// Notification types pushed by the server.
const (
	NotificationTypeMessage      = "message"
	NotificationTypeNewUser      = "new_user"
	NotificationTypeAdmin        = "admin_announcement"
	NotificationTypeLikedForum   = "liked_forum"
	NotificationTypeRequest      = "request"
	NotificationTypeAddedToGroup = "added_to_group"
)

// Notification is one entry in the user's notification feed. Identity is ID:
// the same ID arriving from different sources (push vs. fetch) denotes the
// same entity. Seen is the only mutable field.
type Notification struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Text         string `json:"text"`
	CreatedAtUTC int64  `json:"created_at_utc"`
	Seen         bool   `json:"seen"`

	// RecipientID routes outbound notifications created by this client.
	// Empty on entries fetched for the current user.
	RecipientID string `json:"recipient_id,omitempty"`
}

// ValidateNotificationType rejects unknown notification types.
func ValidateNotificationType(notificationType string) error {
	switch notificationType {
	case NotificationTypeMessage,
		NotificationTypeNewUser,
		NotificationTypeAdmin,
		NotificationTypeLikedForum,
		NotificationTypeRequest,
		NotificationTypeAddedToGroup:
		return nil
	default:
		return fmt.Errorf("invalid notification type %q", notificationType)
	}
}
