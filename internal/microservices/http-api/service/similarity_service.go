package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"theshelf/internal/metrics"
	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"
	"theshelf/internal/vectormath"

	"gorm.io/gorm"
)

// ScoredBook is a similarity hit.
type ScoredBook struct {
	Book  models.Book
	Score float64
}

// SimilarityConfig tunes both similarity strategies.
type SimilarityConfig struct {
	ReliabilityFloor int
	NeutralFill      float64
	CandidateCap     int
	LookupTimeout    time.Duration
}

// DefaultSimilarityConfig returns the production defaults.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		ReliabilityFloor: 3,
		NeutralFill:      vectormath.NeutralFill,
		CandidateCap:     100,
		LookupTimeout:    500 * time.Millisecond,
	}
}

// SimilarityService ranks books by cosine similarity to an anchor book.
// Missing data yields an empty list, never an error.
type SimilarityService interface {
	FindSimilarByEmbedding(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]ScoredBook, error)
	FindSimilarByFingerprint(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]ScoredBook, error)
}

type similarityService struct {
	bookRepo   repository.BookRepository
	ratingRepo repository.RatingRepository
	cfg        SimilarityConfig
	logger     *slog.Logger
}

func NewSimilarityService(bookRepo repository.BookRepository, ratingRepo repository.RatingRepository, cfg SimilarityConfig, logger *slog.Logger) SimilarityService {
	def := DefaultSimilarityConfig()
	if cfg.ReliabilityFloor <= 0 {
		cfg.ReliabilityFloor = def.ReliabilityFloor
	}
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = def.CandidateCap
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &similarityService{
		bookRepo:   bookRepo,
		ratingRepo: ratingRepo,
		cfg:        cfg,
		logger:     logger.With("component", "similarity_service"),
	}
}

type candidate[T vectormath.Float] struct {
	id  int64
	vec []T
}

type rankedID struct {
	id    int64
	score float64
}

// rankByCosine scores candidates against target, highest first with ties on
// ascending id. Candidates of the wrong length are skipped.
func rankByCosine[T vectormath.Float](ctx context.Context, target []T, candidates []candidate[T], exclude map[int64]struct{}, limit int, logger *slog.Logger) ([]rankedID, error) {
	ranked := make([]rankedID, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, skip := exclude[c.id]; skip {
			continue
		}
		score, err := vectormath.Cosine(target, c.vec)
		if err != nil {
			logger.Warn("similarity_candidate_skipped",
				"book_id", c.id,
				"want_dims", len(target),
				"got_dims", len(c.vec),
				"error", err,
			)
			continue
		}
		ranked = append(ranked, rankedID{id: c.id, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func excludeSet(anchor int64, ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids)+1)
	set[anchor] = struct{}{}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func setKeys(set map[int64]struct{}) []int64 {
	keys := make([]int64, 0, len(set))
	for id := range set {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *similarityService) FindSimilarByEmbedding(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]ScoredBook, error) {
	if limit <= 0 {
		return []ScoredBook{}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	target, err := s.bookRepo.GetEmbedding(lookupCtx, bookID)
	cancel()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordSimilarity("embedding", "error")
			return nil, ErrBookNotFound
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("embedding_lookup_failed", "book_id", bookID, "error", err)
		metrics.RecordSimilarity("embedding", "insufficient_data")
		return []ScoredBook{}, nil
	}
	if len(target) == 0 {
		s.logger.Debug("embedding_missing", "book_id", bookID)
		metrics.RecordSimilarity("embedding", "insufficient_data")
		return []ScoredBook{}, nil
	}

	exclude := excludeSet(bookID, excludeIDs)
	rows, err := s.bookRepo.ListCandidateBooks(ctx, setKeys(exclude), s.cfg.CandidateCap)
	if err != nil {
		metrics.RecordSimilarity("embedding", "error")
		return nil, err
	}

	candidates := make([]candidate[float32], 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, candidate[float32]{id: row.BookID, vec: row.Embedding})
	}

	ranked, err := rankByCosine(ctx, target, candidates, exclude, limit, s.logger)
	if err != nil {
		return nil, err
	}
	metrics.RecordSimilarity("embedding", "ok")
	return s.hydrate(ctx, ranked)
}

func (s *similarityService) FindSimilarByFingerprint(ctx context.Context, bookID int64, limit int, excludeIDs []int64) ([]ScoredBook, error) {
	if limit <= 0 {
		return []ScoredBook{}, nil
	}

	anchor, err := s.ratingRepo.GetFingerprint(ctx, bookID)
	if err != nil {
		metrics.RecordSimilarity("fingerprint", "error")
		return nil, err
	}
	if anchor == nil {
		if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBookNotFound
			}
			return nil, err
		}
	}
	if !anchor.IsReliable(s.cfg.ReliabilityFloor) {
		s.logger.Debug("fingerprint_anchor_unreliable", "book_id", bookID, "floor", s.cfg.ReliabilityFloor)
		metrics.RecordSimilarity("fingerprint", "insufficient_data")
		return []ScoredBook{}, nil
	}

	exclude := excludeSet(bookID, excludeIDs)
	fps, err := s.bookRepo.ListBooksWithReliableFingerprint(ctx, s.cfg.ReliabilityFloor, setKeys(exclude))
	if err != nil {
		metrics.RecordSimilarity("fingerprint", "error")
		return nil, err
	}

	candidates := make([]candidate[float64], 0, len(fps))
	for i := range fps {
		if !fps[i].IsReliable(s.cfg.ReliabilityFloor) {
			continue
		}
		candidates = append(candidates, candidate[float64]{id: fps[i].BookID, vec: fps[i].Vector(s.cfg.NeutralFill)})
	}

	ranked, err := rankByCosine(ctx, anchor.Vector(s.cfg.NeutralFill), candidates, exclude, limit, s.logger)
	if err != nil {
		return nil, err
	}
	metrics.RecordSimilarity("fingerprint", "ok")
	return s.hydrate(ctx, ranked)
}

// hydrate loads the ranked books, keeping rank order and dropping ids that vanished.
func (s *similarityService) hydrate(ctx context.Context, ranked []rankedID) ([]ScoredBook, error) {
	if len(ranked) == 0 {
		return []ScoredBook{}, nil
	}

	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	books, err := s.bookRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load similar books: %w", err)
	}

	byID := make(map[int64]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	out := make([]ScoredBook, 0, len(ranked))
	for _, r := range ranked {
		if b, ok := byID[r.id]; ok {
			out = append(out, ScoredBook{Book: b, Score: r.score})
		}
	}
	return out, nil
}
