package helpers

import (
	"strings"
	"unicode"
)

const maxFilenamePart = 40

// SafeFilenamePart turns an uploaded file name into something safe to embed in a local file name.
// Letters of any script are kept so Korean recipient names stay readable.
func SafeFilenamePart(name string) string {
	var result strings.Builder
	count := 0
	for _, r := range name {
		if count == maxFilenamePart {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
		count++
	}
	return result.String()
}

// ShortJobID returns the random tail of a job id for log prefixes.
func ShortJobID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
