package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// digestLen is the number of hex characters kept from the SHA256 digest.
// Kept short for storage compactness; matches the width downstream readers
// index on.
const digestLen = 16

// MessageHash computes the deterministic content fingerprint for a raw
// content blob: SHA256, hex-encoded, truncated to 16 characters.
func MessageHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// FastPathHash computes the fingerprint for a structured fast-path decision
// from its stable per-decision identifier.
// Formula: SHA256("conversation|" + id), truncated like MessageHash.
func FastPathHash(conversationID string) string {
	sum := sha256.Sum256([]byte("conversation|" + conversationID))
	return hex.EncodeToString(sum[:])[:digestLen]
}
