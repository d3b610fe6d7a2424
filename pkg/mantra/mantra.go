// Package mantra produces the short affirmation shown after a session.
package mantra

import (
	"context"
	"errors"
	"strings"
)

// Generator turns a mood and the prompt answers into a short affirmation.
type Generator interface {
	Generate(ctx context.Context, mood string, responses []string) (string, error)
}

// ErrEmpty is returned when a generator produced no text.
var ErrEmpty = errors.New("mantra: empty response")

var fallbacks = map[string]string{
	"happy":    "Let this lightness stay with you a little longer.",
	"calm":     "Breathe and let it pass.",
	"grateful": "What you notice, you grow.",
	"sad":      "It is okay to be gentle with yourself today.",
	"anxious":  "One breath at a time is enough.",
	"stressed": "You only have to do the next small thing.",
	"angry":    "Your feelings are valid; your peace is yours to keep.",
	"tired":    "Rest is part of the work.",
}

// DefaultFallback is used for moods without their own line.
const DefaultFallback = "You are doing better than you think."

// Fallback returns the static line for mood.
func Fallback(mood string) string {
	if line, ok := fallbacks[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return line
	}
	return DefaultFallback
}

// Static always returns the fallback line.
type Static struct{}

func (Static) Generate(_ context.Context, mood string, _ []string) (string, error) {
	return Fallback(mood), nil
}

// WithFallback returns text from gen, or the static line when gen fails or
// returns nothing. The returned error reports the generator failure, if any,
// and is informational.
func WithFallback(ctx context.Context, gen Generator, mood string, responses []string) (string, error) {
	if gen == nil {
		return Fallback(mood), nil
	}
	text, err := gen.Generate(ctx, mood, responses)
	if err != nil {
		return Fallback(mood), err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(mood), ErrEmpty
	}
	return text, nil
}
