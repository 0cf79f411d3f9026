// Package threadtoken encodes and decodes the short task token embedded in
// outbound mail/Teams text for reply threading (spec.md §4.1).
package threadtoken

import (
	"crypto/sha1"
	"regexp"
	"strings"

	"ideagraph/internal/apperr"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// extractPattern matches [IG-TASK:#XXXXXX] with 6-8 alphanumeric chars,
// case-insensitive (spec.md §4.1, §8 bit-exact format).
var extractPattern = regexp.MustCompile(`(?i)IG-TASK:#([A-Z0-9]{6,8})`)

// ShortIDFor derives a deterministic, URL-safe token from a task id. The
// base length is 6; callers that hit a uniqueness collision should call
// ShortIDForLen with length 7 then 8 before giving up (spec.md §4.1 tie-break).
func ShortIDFor(taskID string) string {
	return ShortIDForLen(taskID, 6)
}

// ShortIDForLen derives a token of the requested length (6, 7, or 8).
func ShortIDForLen(taskID string, length int) string {
	sum := sha1.Sum([]byte(taskID))
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(alphabet[int(sum[i])%len(alphabet)])
	}
	return b.String()
}

// FormatSubject inserts the token into subject if not already present;
// leaves subject untouched otherwise (spec.md §4.1).
func FormatSubject(subject, shortID string) string {
	if ExtractShortID(subject) != "" {
		return subject
	}
	return strings.TrimSpace(subject) + " [IG-TASK:#" + shortID + "]"
}

// ExtractShortID returns the first IG-TASK token found in s, upper-cased, or
// "" if none is present (spec.md §4.1, round-trip property §8).
func ExtractShortID(s string) string {
	match := extractPattern.FindStringSubmatch(s)
	if match == nil {
		return ""
	}
	return strings.ToUpper(match[1])
}

// ErrExhausted describes a short id that still collides at length 8. The
// collision-extension loops in this module do not return it: once lengths
// 6 and 7 collide they use the length-8 id without checking it.
var ErrExhausted = apperr.New(apperr.KindConflict, "short-id space exhausted at maximum length")
