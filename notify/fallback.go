package notify

import "campuschat/models"

// fallbackNotifications is the fixed dataset shown when both the server and
// the session cache are unavailable. Every entry is pre-seen so degraded
// mode never inflates the unread count.
func fallbackNotifications() []models.Notification {
	return []models.Notification{
		{
			ID:           "fallback-1",
			Type:         models.NotificationTypeAdmin,
			Text:         "Welcome to campus chat. Live notifications are temporarily unavailable.",
			CreatedAtUTC: 0,
			Seen:         true,
		},
		{
			ID:           "fallback-2",
			Type:         models.NotificationTypeMessage,
			Text:         "Messages will appear here once the connection is restored.",
			CreatedAtUTC: 0,
			Seen:         true,
		},
		{
			ID:           "fallback-3",
			Type:         models.NotificationTypeNewUser,
			Text:         "New classmates you follow will show up in this feed.",
			CreatedAtUTC: 0,
			Seen:         true,
		},
	}
}
