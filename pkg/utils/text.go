// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// NormalizeText applies Unicode NFC normalization and collapses runs of whitespace to a
// single space. Text is normalized before embedding so visually identical input embeds
// identically.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
