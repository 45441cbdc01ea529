package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

// RatingValues holds the seven dimensions in vector order, nil means unset.
type RatingValues [models.NumDimensions]*int

// RatingInput is one rating write. An update only touches the dimensions
// marked as sent; a sent nil clears that dimension.
type RatingInput struct {
	Values RatingValues
	Sent   [models.NumDimensions]bool
}

// NewRatingInput marks every non-nil value as sent.
func NewRatingInput(values RatingValues) RatingInput {
	in := RatingInput{Values: values}
	for d, v := range values {
		in.Sent[d] = v != nil
	}
	return in
}

func (in RatingInput) sent(d models.Dimension) bool {
	return in.Sent[d] || in.Values[d] != nil
}

// apply copies the sent dimensions onto r and leaves the rest untouched.
func (in RatingInput) apply(r *models.Rating) {
	for _, d := range models.Dimensions {
		if in.sent(d) {
			r.SetValue(d, in.Values[d])
		}
	}
}

type RatingService interface {
	CreateOrUpdateRating(ctx context.Context, userID string, bookID int64, input RatingInput) (*models.Rating, error)
	DeleteRating(ctx context.Context, userID string, bookID int64) error
	GetUserRating(ctx context.Context, userID string, bookID int64) (*models.Rating, error)
}

type ratingService struct {
	ratingRepo   repository.RatingRepository
	bookRepo     repository.BookRepository
	fingerprints FingerprintService
	logger       *slog.Logger
}

func NewRatingService(ratingRepo repository.RatingRepository, bookRepo repository.BookRepository, fingerprints FingerprintService, logger *slog.Logger) RatingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ratingService{
		ratingRepo:   ratingRepo,
		bookRepo:     bookRepo,
		fingerprints: fingerprints,
		logger:       logger.With("component", "rating_service"),
	}
}

// ValidateRating checks that at least one dimension is sent and every
// non-null one lies in [1,5].
func ValidateRating(input RatingInput) error {
	sent := 0
	for _, d := range models.Dimensions {
		if !input.sent(d) {
			continue
		}
		sent++
		if v := input.Values[d]; v != nil && (*v < 1 || *v > 5) {
			return ErrInvalidDimension
		}
	}
	if sent == 0 {
		return ErrEmptyRating
	}
	return nil
}

// CreateOrUpdateRating writes the user's rating and recomputes the book's
// fingerprint in the same transaction. A second write for the same pair
// merges into the stored rating.
func (s *ratingService) CreateOrUpdateRating(ctx context.Context, userID string, bookID int64, input RatingInput) (*models.Rating, error) {
	if err := ValidateRating(input); err != nil {
		return nil, err
	}
	if err := s.ensureBook(ctx, bookID); err != nil {
		return nil, err
	}

	var rating *models.Rating
	err := s.ratingRepo.WithinBookLock(ctx, bookID, func(tx repository.RatingRepository) error {
		existing, err := tx.GetByUserAndBook(ctx, userID, bookID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			input.apply(existing)
			if !existing.HasAnyDimension() {
				return ErrEmptyRating
			}
			if err := tx.Update(ctx, existing); err != nil {
				return err
			}
			rating = existing
		} else {
			newRating := &models.Rating{UserID: userID, BookID: bookID}
			input.apply(newRating)
			if !newRating.HasAnyDimension() {
				return ErrEmptyRating
			}
			if err := tx.Create(ctx, newRating); err != nil {
				return err
			}
			rating = newRating
		}

		_, err = s.fingerprints.RecomputeWith(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return nil, s.wrapWriteError(bookID, err)
	}

	s.logger.Info("rating_saved", "user_id", userID, "book_id", bookID, "rating_id", rating.ID)
	return rating, nil
}

// DeleteRating removes the user's rating and recomputes the book's fingerprint.
func (s *ratingService) DeleteRating(ctx context.Context, userID string, bookID int64) error {
	if err := s.ensureBook(ctx, bookID); err != nil {
		return err
	}

	err := s.ratingRepo.WithinBookLock(ctx, bookID, func(tx repository.RatingRepository) error {
		if err := tx.Delete(ctx, userID, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRatingNotFound
			}
			return err
		}
		_, err := s.fingerprints.RecomputeWith(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return s.wrapWriteError(bookID, err)
	}

	s.logger.Info("rating_deleted", "user_id", userID, "book_id", bookID)
	return nil
}

func (s *ratingService) GetUserRating(ctx context.Context, userID string, bookID int64) (*models.Rating, error) {
	rating, err := s.ratingRepo.GetByUserAndBook(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	return rating, nil
}

func (s *ratingService) ensureBook(ctx context.Context, bookID int64) error {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	return nil
}

func (s *ratingService) wrapWriteError(bookID int64, err error) error {
	if errors.Is(err, ErrRatingNotFound) || errors.Is(err, ErrEmptyRating) || errors.Is(err, ErrFingerprintRecompute) {
		return err
	}
	s.logger.Error("rating_write_failed", "book_id", bookID, "error", err)
	return fmt.Errorf("write rating for book %d: %w", bookID, err)
}
