package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// Content types used for fingerprinting and audit records.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

// Base64Prefix marks an inline base64 image payload in an image reference,
// as opposed to an HTTP(S) URL.
const Base64Prefix = "base64://"

// Message is a single submission. Content is either raw text or an image
// reference (URL or Base64Prefix-prefixed payload). Immutable after creation.
type Message struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// NewMessage creates a Message.
func NewMessage(content, source string) Message {
	return Message{Content: content, Source: source}
}

// Fingerprint returns a stable, collision-resistant identity for a piece of
// content. Identical (contentType, content) pairs always yield the same
// fingerprint, which makes it usable as a cache and coalescing key.
func Fingerprint(contentType, content string) string {
	h := sha256.New()
	h.Write([]byte(contentType))
	h.Write([]byte{':'})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
