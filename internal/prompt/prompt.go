package prompt

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Placeholder is the single substitution token recognized in prompt templates.
const Placeholder = "{patient_notes}"

// DefaultMaxChars bounds the note text substituted into a prompt to keep token
// usage predictable.
const DefaultMaxChars = 4000

// ErrMissingPlaceholder is returned when a template does not contain the
// placeholder exactly once.
var ErrMissingPlaceholder = errors.New("prompt template must contain {patient_notes} exactly once")

// Render substitutes the truncated source text into the template.
//
// The source text is truncated to maxChars before substitution, and the
// placeholder is replaced exactly once. Placeholder-like tokens inside the
// source text itself are left alone: the replacement is not re-scanned.
func Render(template, sourceText string, maxChars int) (string, error) {
	if strings.Count(template, Placeholder) != 1 {
		return "", ErrMissingPlaceholder
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(sourceText) > maxChars {
		sourceText = string([]rune(sourceText)[:maxChars])
	}
	return strings.Replace(template, Placeholder, sourceText, 1), nil
}
