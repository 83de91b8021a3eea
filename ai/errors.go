package ai

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInputTooLarge indicates the model rejected an input as exceeding its
	// context or input-size limit. Callers truncate and retry once.
	ErrInputTooLarge = errors.New("input exceeds model limit")

	// ErrEmptyResponse indicates the model returned no usable content.
	ErrEmptyResponse = errors.New("empty model response")
)

// oversizeMarkers are substrings providers use to report an oversized input.
var oversizeMarkers = []string{
	"context_length_exceeded",
	"maximum context length",
	"prompt is too long",
	"input is too long",
	"too many tokens",
}

// IsOversizeMessage reports whether a provider error message describes an
// oversized input.
func IsOversizeMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range oversizeMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Truncate shortens text for a retry after ErrInputTooLarge. When maxChars is
// positive and text is longer, it keeps the first maxChars runes; otherwise
// it keeps the first half. The cut never splits a rune.
func Truncate(text string, maxChars int) string {
	n := utf8.RuneCountInString(text)
	keep := n / 2
	if maxChars > 0 && n > maxChars {
		keep = maxChars
	}
	i := 0
	for pos := range text {
		if i == keep {
			return text[:pos]
		}
		i++
	}
	return text
}
