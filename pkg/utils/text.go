// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Truncate returns s truncated to maxLen runes, with "..." appended when
// truncation happened. maxLen <= 0 returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// NormalizeSpace collapses all whitespace runs in s to single spaces and
// trims the ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeQuery lowercases and whitespace-collapses query text so that
// trivially different spellings of the same question share a cache key.
func NormalizeQuery(s string) string {
	return strings.ToLower(NormalizeSpace(s))
}
