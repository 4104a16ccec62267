package paper

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
)

// idLength is the number of fingerprint hex characters used for paper IDs.
const idLength = 16

// NormalizeText lowercases text and collapses all whitespace runs to single spaces.
// Two extractions of the same document that differ only in layout normalize equally.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint computes the SHA256 of the normalized text.
func Fingerprint(text string) string {
	h := sha256.New()
	io.WriteString(h, NormalizeText(text))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// IDFromFingerprint derives a stable paper ID from a fingerprint.
func IDFromFingerprint(fingerprint string) string {
	if len(fingerprint) <= idLength {
		return fingerprint
	}
	return fingerprint[:idLength]
}
