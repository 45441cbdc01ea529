package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"theshelf/internal/metrics"
	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"
)

// Recommendation reasons and scores, in priority order.
const (
	ReasonSimilarFeel = "similar feel to books you loved"
	ScoreSimilarFeel  = 0.9
	ScorePopular      = 0.7

	strategyFingerprint = "fingerprint"
	strategyPopular     = "popular"
)

// Recommendation is one explained suggestion.
type Recommendation struct {
	Book   models.Book
	Reason string
	Score  float64
}

// RecommendConfig tunes the planner.
type RecommendConfig struct {
	FavoriteCount      int
	FavoriteMinStar    float64
	SimilarPerFavorite int
	PopularMinRatings  int
	PopularMinStar     float64
}

func DefaultRecommendConfig() RecommendConfig {
	return RecommendConfig{
		FavoriteCount:      3,
		FavoriteMinStar:    4.0,
		SimilarPerFavorite: 5,
		PopularMinRatings:  10,
		PopularMinStar:     4.0,
	}
}

type RecommendationService interface {
	// Recommend returns at most limit distinct books, personalized picks first.
	// With excludeAlreadyInLibrary false, only finished and abandoned books are excluded.
	Recommend(ctx context.Context, userID string, limit int, excludeAlreadyInLibrary bool) ([]Recommendation, error)
}

type recommendationService struct {
	libraryRepo repository.LibraryRepository
	bookRepo    repository.BookRepository
	similarity  SimilarityService
	cfg         RecommendConfig
	logger      *slog.Logger
}

func NewRecommendationService(libraryRepo repository.LibraryRepository, bookRepo repository.BookRepository, similarity SimilarityService, cfg RecommendConfig, logger *slog.Logger) RecommendationService {
	def := DefaultRecommendConfig()
	if cfg.FavoriteCount <= 0 {
		cfg.FavoriteCount = def.FavoriteCount
	}
	if cfg.FavoriteMinStar <= 0 {
		cfg.FavoriteMinStar = def.FavoriteMinStar
	}
	if cfg.SimilarPerFavorite <= 0 {
		cfg.SimilarPerFavorite = def.SimilarPerFavorite
	}
	if cfg.PopularMinRatings <= 0 {
		cfg.PopularMinRatings = def.PopularMinRatings
	}
	if cfg.PopularMinStar <= 0 {
		cfg.PopularMinStar = def.PopularMinStar
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &recommendationService{
		libraryRepo: libraryRepo,
		bookRepo:    bookRepo,
		similarity:  similarity,
		cfg:         cfg,
		logger:      logger.With("component", "recommendation_service"),
	}
}

func (s *recommendationService) Recommend(ctx context.Context, userID string, limit int, excludeAlreadyInLibrary bool) ([]Recommendation, error) {
	start := time.Now()
	perStrategy := map[string]int{}
	defer func() { metrics.RecordRecommendation(time.Since(start), perStrategy) }()

	if limit <= 0 {
		return []Recommendation{}, nil
	}

	// 1. exclusion set
	library, err := s.libraryRepo.ListUserBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	excluded := make(map[int64]struct{}, len(library))
	for _, entry := range library {
		if excludeAlreadyInLibrary || entry.Status.Closed() {
			excluded[entry.BookID] = struct{}{}
		}
	}

	recs := make([]Recommendation, 0, limit)

	// 2. favorites, most recently rated first
	favorites := s.favorites(ctx, userID)

	// 3. books that feel like the favorites
	for _, favID := range favorites {
		if len(recs) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		similar, err := s.similarity.FindSimilarByFingerprint(ctx, favID, s.cfg.SimilarPerFavorite, setKeys(excluded))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("favorite_similarity_failed", "user_id", userID, "book_id", favID, "error", err)
			continue
		}
		for _, hit := range similar {
			if _, dup := excluded[hit.Book.ID]; dup {
				continue
			}
			excluded[hit.Book.ID] = struct{}{}
			recs = append(recs, Recommendation{Book: hit.Book, Reason: ReasonSimilarFeel, Score: ScoreSimilarFeel})
			perStrategy[strategyFingerprint]++
		}
	}

	// 4. popularity fill
	if len(recs) < limit {
		popular, err := s.bookRepo.ListPopular(ctx, s.cfg.PopularMinRatings, s.cfg.PopularMinStar, setKeys(excluded), limit-len(recs))
		if err != nil {
			if len(recs) == 0 {
				return nil, fmt.Errorf("load popular books: %w", err)
			}
			s.logger.Warn("popular_fallback_failed", "user_id", userID, "error", err)
		}
		for _, p := range popular {
			if _, dup := excluded[p.Book.ID]; dup {
				continue
			}
			excluded[p.Book.ID] = struct{}{}
			recs = append(recs, Recommendation{Book: p.Book, Reason: popularReason(p.Fingerprint), Score: ScorePopular})
			perStrategy[strategyPopular]++
		}
	}

	// 5. stable on ties, so insertion order survives within a strategy
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > limit {
		recs = recs[:limit]
	}

	s.logger.Debug("recommendations_planned",
		"user_id", userID,
		"favorites", len(favorites),
		"count", len(recs),
	)
	return recs, nil
}

// favorites returns the book ids of the user's highest-rated books. A failed
// read leaves the planner with popularity only.
func (s *recommendationService) favorites(ctx context.Context, userID string) []int64 {
	ratings, err := s.libraryRepo.ListUserRatings(ctx, userID)
	if err != nil {
		s.logger.Warn("rating_history_failed", "user_id", userID, "error", err)
		return nil
	}

	ids := make([]int64, 0, s.cfg.FavoriteCount)
	for i := range ratings {
		star := ratings[i].StarEquivalent()
		if star == nil || *star < s.cfg.FavoriteMinStar {
			continue
		}
		ids = append(ids, ratings[i].BookID)
		if len(ids) == s.cfg.FavoriteCount {
			break
		}
	}
	return ids
}

func popularReason(fp models.Fingerprint) string {
	var star float64
	if fp.StarEquivalent != nil {
		star = *fp.StarEquivalent
	}
	return fmt.Sprintf("highly rated (%.1f/5.0)", star)
}
