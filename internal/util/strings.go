package util

import "strings"

// EnsurePeriod makes sure a translated validator message ends with a period.
func EnsurePeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
