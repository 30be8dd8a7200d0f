package utils

import "regexp"

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// SanitizeString strips control characters from user-supplied text
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
