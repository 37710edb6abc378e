package models

// Message delivery statuses as reported by the server. Status is the only
// field the server mutates after a message is accepted by the transport.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusSeen      = "seen"
)

const (
	// MessageKindText is a plain text message.
	MessageKindText = "text"
	// MessageKindMedia is a message carrying one or more attachments.
	MessageKindMedia = "media"
)

// Message represents one chat message as delivered by the server.
type Message struct {
	ID           string          `json:"id"`
	Sender       UserRef         `json:"sender"`
	Text         string          `json:"text"`
	TimestampUTC int64           `json:"timestamp_utc"`
	Status       string          `json:"status"`
	Kind         string          `json:"kind"`
	Attachments  []AttachmentRef `json:"attachments,omitempty"`
}

// MessageIntent is an outbound message draft handed off for upload. The
// caller that receives an intent owns the attachment resources behind it and
// releases them once the upload settles.
type MessageIntent struct {
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Attachments []AttachmentRef `json:"attachments,omitempty"`
}
