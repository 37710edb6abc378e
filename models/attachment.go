package models

// Attachment source kinds, classified from the selected file's media type.
const (
	SourceKindImage = "image"
	SourceKindVideo = "video"
	SourceKindAudio = "audio"
	SourceKindFile  = "file"
)

// AttachmentRef describes one draft-local media attachment. The binary data
// behind it is owned by a transient handle managed elsewhere; the ref itself
// is safe to copy around.
type AttachmentRef struct {
	ID          string `json:"id"`
	SourceKind  string `json:"source_kind"`
	DisplayName string `json:"display_name"`
	SizeBytes   int64  `json:"size_bytes"`
}
