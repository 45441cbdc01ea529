package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"theshelf/internal/metrics"
	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

// FingerprintService maintains the per-book aggregate of all ratings.
type FingerprintService interface {
	// Get returns the empty fingerprint when the book exists but has no row.
	Get(ctx context.Context, bookID int64) (*models.Fingerprint, error)
	// Recompute rebuilds the fingerprint under the book's lock.
	Recompute(ctx context.Context, bookID int64) (*models.Fingerprint, error)
	// RecomputeWith rebuilds the fingerprint using a repository bound to the caller's transaction.
	RecomputeWith(ctx context.Context, tx repository.RatingRepository, bookID int64) (*models.Fingerprint, error)
	// OnRatingChanged must be called after every rating create, update or delete
	// that did not already recompute inside its own transaction.
	OnRatingChanged(ctx context.Context, bookID int64) error
	ChartData(ctx context.Context, bookID int64, userID string) (*ChartData, error)
}

// Chart sources.
const (
	ChartSourceUser        = "user"
	ChartSourceFingerprint = "fingerprint"
)

// ChartData is the seven-axis radar chart of a book.
type ChartData struct {
	BookID int64
	Source string
	Values [models.NumDimensions]*float64
}

type fingerprintService struct {
	ratingRepo repository.RatingRepository
	bookRepo   repository.BookRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewFingerprintService(ratingRepo repository.RatingRepository, bookRepo repository.BookRepository, logger *slog.Logger) FingerprintService {
	if logger == nil {
		logger = slog.Default()
	}
	return &fingerprintService{
		ratingRepo: ratingRepo,
		bookRepo:   bookRepo,
		logger:     logger.With("component", "fingerprint_service"),
		now:        time.Now,
	}
}

// ComputeFingerprint aggregates ratings into a fingerprint. Averages cover
// non-null values only; ratings with no dimension at all are not counted.
// Sums are integers, so the result does not depend on rating order.
func ComputeFingerprint(bookID int64, ratings []models.Rating) *models.Fingerprint {
	var (
		sums   [models.NumDimensions]int
		counts [models.NumDimensions]int
		total  int
	)

	for i := range ratings {
		if !ratings[i].HasAnyDimension() {
			continue
		}
		total++
		for d, v := range ratings[i].Values() {
			if v != nil {
				sums[d] += *v
				counts[d]++
			}
		}
	}

	fp := models.EmptyFingerprint(bookID)
	fp.TotalRatingCount = total

	var starSum float64
	var starN int
	for _, d := range models.Dimensions {
		if counts[d] == 0 {
			continue
		}
		avg := float64(sums[d]) / float64(counts[d])
		fp.SetAverage(d, &avg)
		starSum += avg
		starN++
	}
	if starN > 0 {
		star := starSum / float64(starN)
		fp.StarEquivalent = &star
	}

	return fp
}

func (s *fingerprintService) Get(ctx context.Context, bookID int64) (*models.Fingerprint, error) {
	fp, err := s.ratingRepo.GetFingerprint(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if fp != nil {
		return fp, nil
	}

	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return models.EmptyFingerprint(bookID), nil
}

func (s *fingerprintService) Recompute(ctx context.Context, bookID int64) (*models.Fingerprint, error) {
	var out *models.Fingerprint
	err := s.ratingRepo.WithinBookLock(ctx, bookID, func(tx repository.RatingRepository) error {
		fp, err := s.RecomputeWith(ctx, tx, bookID)
		if err != nil {
			return err
		}
		out = fp
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFingerprintRecompute) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: book %d: %v", ErrFingerprintRecompute, bookID, err)
	}
	return out, nil
}

func (s *fingerprintService) RecomputeWith(ctx context.Context, tx repository.RatingRepository, bookID int64) (*models.Fingerprint, error) {
	start := time.Now()
	fp, written, err := s.recompute(ctx, tx, bookID)
	metrics.RecordFingerprintRecompute(written, time.Since(start), err)
	if err != nil {
		s.logger.Error("fingerprint_recompute_failed", "book_id", bookID, "error", err)
		return nil, fmt.Errorf("%w: book %d: %v", ErrFingerprintRecompute, bookID, err)
	}
	if written {
		s.logger.Debug("fingerprint_recomputed",
			"book_id", bookID,
			"total_rating_count", fp.TotalRatingCount,
		)
	}
	return fp, nil
}

func (s *fingerprintService) recompute(ctx context.Context, tx repository.RatingRepository, bookID int64) (*models.Fingerprint, bool, error) {
	ratings, err := tx.ListRatingsForBook(ctx, bookID)
	if err != nil {
		return nil, false, err
	}
	existing, err := tx.GetFingerprint(ctx, bookID)
	if err != nil {
		return nil, false, err
	}

	fp := ComputeFingerprint(bookID, ratings)

	// unchanged aggregate: keep the stored row, updated_at included
	if existing != nil && existing.SameAggregate(fp) {
		return existing, false, nil
	}
	if existing == nil && !fp.HasRatings() {
		return fp, false, nil
	}

	fp.UpdatedAt = s.now().UTC()
	if err := tx.UpsertFingerprint(ctx, fp); err != nil {
		return nil, false, err
	}
	return fp, true, nil
}

func (s *fingerprintService) OnRatingChanged(ctx context.Context, bookID int64) error {
	_, err := s.Recompute(ctx, bookID)
	return err
}

func (s *fingerprintService) ChartData(ctx context.Context, bookID int64, userID string) (*ChartData, error) {
	if userID != "" {
		rating, err := s.ratingRepo.GetByUserAndBook(ctx, userID, bookID)
		switch {
		case err == nil:
			data := &ChartData{BookID: bookID, Source: ChartSourceUser}
			for d, v := range rating.Values() {
				if v != nil {
					f := float64(*v)
					data.Values[d] = &f
				}
			}
			return data, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	fp, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return &ChartData{BookID: bookID, Source: ChartSourceFingerprint, Values: fp.Averages()}, nil
}
