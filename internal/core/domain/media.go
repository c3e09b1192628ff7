package domain

import "strings"

type MediaType string

const (
	MediaImage MediaType = "IMAGE"
	MediaVideo MediaType = "VIDEO"
	MediaAudio MediaType = "AUDIO"
)

// Media is one attachment, carried inline as a base64 payload so the blob
// stays self-contained.
type Media struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     MediaType `json:"type"`
	MimeType string    `json:"mimeType,omitempty"`
	Content  string    `json:"content"`
}

// MediaTypeFromMime infers the attachment kind from the MIME prefix.
// Anything that is not image/* or video/* is treated as audio.
func MediaTypeFromMime(mime string) MediaType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaImage
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo
	default:
		return MediaAudio
	}
}
