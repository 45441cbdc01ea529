package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"
)

type Mood string

const (
	MoodComfort       Mood = "comfort"
	MoodChallenge     Mood = "challenge"
	MoodEscape        Mood = "escape"
	MoodContemplative Mood = "contemplative"
)

// MoodInfo describes a mood for listing.
type MoodInfo struct {
	Mood        Mood
	Description string
	Bounds      []models.DimensionBound
}

var moods = []MoodInfo{
	{
		Mood:        MoodComfort,
		Description: "emotionally resonant, easy to follow",
		Bounds: []models.DimensionBound{
			models.AtLeast(models.DimEmotionalImpact, 4.0),
			models.AtMost(models.DimComplexity, 3.0),
		},
	},
	{
		Mood:        MoodChallenge,
		Description: "complex and original",
		Bounds: []models.DimensionBound{
			models.AtLeast(models.DimComplexity, 4.0),
			models.AtLeast(models.DimOriginality, 4.0),
		},
	},
	{
		Mood:        MoodEscape,
		Description: "fast paced with a strong plot",
		Bounds: []models.DimensionBound{
			models.AtLeast(models.DimPace, 4.0),
			models.AtLeast(models.DimPlotQuality, 4.0),
		},
	},
	{
		Mood:        MoodContemplative,
		Description: "slow paced with beautiful prose",
		Bounds: []models.DimensionBound{
			models.AtMost(models.DimPace, 2.5),
			models.AtLeast(models.DimProseStyle, 4.0),
		},
	},
}

// ParseMood accepts any casing and surrounding whitespace.
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := lookupMood(m); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
	}
	return m, nil
}

func lookupMood(m Mood) (MoodInfo, bool) {
	for _, info := range moods {
		if info.Mood == m {
			return info, true
		}
	}
	return MoodInfo{}, false
}

type MoodService interface {
	ListMoods() []MoodInfo
	// ByMood returns reliable books matching the mood, ordered by id.
	ByMood(ctx context.Context, mood string, limit int) ([]models.Book, error)
}

type moodService struct {
	bookRepo         repository.BookRepository
	reliabilityFloor int
	logger           *slog.Logger
}

func NewMoodService(bookRepo repository.BookRepository, reliabilityFloor int, logger *slog.Logger) MoodService {
	if reliabilityFloor <= 0 {
		reliabilityFloor = DefaultSimilarityConfig().ReliabilityFloor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &moodService{
		bookRepo:         bookRepo,
		reliabilityFloor: reliabilityFloor,
		logger:           logger.With("component", "mood_service"),
	}
}

func (s *moodService) ListMoods() []MoodInfo {
	out := make([]MoodInfo, len(moods))
	copy(out, moods)
	return out
}

func (s *moodService) ByMood(ctx context.Context, mood string, limit int) ([]models.Book, error) {
	m, err := ParseMood(mood)
	if err != nil {
		s.logger.Debug("unknown_mood", "mood", mood)
		return nil, err
	}
	if limit <= 0 {
		return []models.Book{}, nil
	}

	info, _ := lookupMood(m)
	books, err := s.bookRepo.ListByMood(ctx, info.Bounds, s.reliabilityFloor, limit)
	if err != nil {
		return nil, fmt.Errorf("books by mood %s: %w", m, err)
	}
	return books, nil
}
