// Package embedding talks to the external text-embedding service.
//
// The service is best effort: every failure (timeout, HTTP error, open
// breaker) surfaces as an error that callers treat as "no embedding".
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable is returned when the embedding service cannot answer right now.
	ErrUnavailable = errors.New("embedding service unavailable")
	// ErrBadResponse is returned for malformed or wrongly sized vectors.
	ErrBadResponse = errors.New("embedding service returned an invalid vector")
)

// Service produces an embedding vector for a piece of text.
// A nil vector with a nil error means there was nothing to embed.
type Service interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Disabled is used when no embedding endpoint is configured.
type Disabled struct{}

func (Disabled) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
}

const maxDescriptionLen = 500

// BookText renders the descriptive text embedded for a book:
// "Title: t | Author: a | Genres: g1, g2 | Description: d".
func BookText(title, author string, genres []string, description string) string {
	parts := make([]string, 0, 4)

	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, "Title: "+t)
	}
	if a := strings.TrimSpace(author); a != "" {
		parts = append(parts, "Author: "+a)
	}
	if len(genres) > 0 {
		parts = append(parts, "Genres: "+strings.Join(genres, ", "))
	}
	if d := strings.TrimSpace(description); d != "" {
		if r := []rune(d); len(r) > maxDescriptionLen {
			d = string(r[:maxDescriptionLen]) + "..."
		}
		parts = append(parts, "Description: "+d)
	}

	return strings.Join(parts, " | ")
}
