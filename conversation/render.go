// Package conversation turns an ordered message log into display items:
// date separators, grouped message rows, and delivery status marks.
//
// Render is pure: the same input always yields the same output.
package conversation

import (
	"time"

	"campuschat/models"
)

// Display item kinds.
const (
	ItemDateSeparator ItemKind = "date_separator"
	ItemMessage       ItemKind = "message"
)

// ItemKind identifies one row type in the rendered transcript.
type ItemKind string

// Delivery status marks for own messages. Seen uses the heavy mark pair so
// it reads distinct from delivered.
const (
	MarkSent      = "✓"
	MarkDelivered = "✓✓"
	MarkSeen      = "✔✔"
)

// DisplayItem is one row of the rendered transcript.
type DisplayItem struct {
	Kind ItemKind

	// Day labels a date separator row, e.g. "Monday, January 5, 2026".
	Day string

	// Message fields, set when Kind is ItemMessage.
	Message    *models.Message
	IsOwn      bool
	ShowAvatar bool
	StatusMark string
}

// Render maps messages (assumed sorted ascending by timestamp) into display
// items using the local time zone for day bucketing.
func Render(messages []models.Message, currentUserID string) []DisplayItem {
	return RenderIn(messages, currentUserID, time.Local)
}

// RenderIn is Render with an explicit location for day bucketing.
func RenderIn(messages []models.Message, currentUserID string, loc *time.Location) []DisplayItem {
	if loc == nil {
		loc = time.Local
	}

	items := make([]DisplayItem, 0, len(messages)*2)
	previousDay := ""
	for i := range messages {
		message := &messages[i]
		localTime := time.UnixMilli(message.TimestampUTC).In(loc)

		day := localTime.Format("2006-01-02")
		if i == 0 || day != previousDay {
			items = append(items, DisplayItem{
				Kind: ItemDateSeparator,
				Day:  localTime.Format("Monday, January 2, 2006"),
			})
		}
		previousDay = day

		isOwn := message.Sender.ID == currentUserID

		items = append(items, DisplayItem{
			Kind:       ItemMessage,
			Message:    message,
			IsOwn:      isOwn,
			ShowAvatar: showAvatar(messages, i, currentUserID),
			StatusMark: statusMark(message, isOwn),
		})
	}
	return items
}

// showAvatar is false for own messages. For others, the avatar shows on the
// last message of a rapid same-sender run: no next message, a different next
// sender, or a next message 60 seconds or more later. A gap of exactly 60s
// ends the run.
func showAvatar(messages []models.Message, index int, currentUserID string) bool {
	current := messages[index]
	if current.Sender.ID == currentUserID {
		return false
	}

	if index+1 >= len(messages) {
		return true
	}

	next := messages[index+1]
	if next.Sender.ID != current.Sender.ID {
		return true
	}
	return next.TimestampUTC-current.TimestampUTC >= 60_000
}

// statusMark resolves the delivery glyph. Only own messages carry one;
// unknown or absent statuses render nothing.
func statusMark(message *models.Message, isOwn bool) string {
	if !isOwn {
		return ""
	}
	switch message.Status {
	case models.MessageStatusSent:
		return MarkSent
	case models.MessageStatusDelivered:
		return MarkDelivered
	case models.MessageStatusSeen:
		return MarkSeen
	default:
		return ""
	}
}
