package repository

import (
	"context"
	"errors"
	"fmt"

	"theshelf/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository interface {
	Create(ctx context.Context, rating *models.Rating) error
	Update(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, userID string, bookID int64) error
	GetByUserAndBook(ctx context.Context, userID string, bookID int64) (*models.Rating, error)
	ListRatingsForBook(ctx context.Context, bookID int64) ([]models.Rating, error)

	// GetFingerprint returns nil, nil when the book has no fingerprint row.
	GetFingerprint(ctx context.Context, bookID int64) (*models.Fingerprint, error)
	UpsertFingerprint(ctx context.Context, fp *models.Fingerprint) error

	// WithinBookLock runs fn in a transaction that holds the book's advisory lock.
	// Calls for the same book are serialized; calls for different books are not.
	WithinBookLock(ctx context.Context, bookID int64, fn func(tx RatingRepository) error) error
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Create a new rating
func (r *ratingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if err := r.db.WithContext(ctx).Create(rating).Error; err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

// Update an existing rating, nil dimensions are written as NULL
func (r *ratingRepository) Update(ctx context.Context, rating *models.Rating) error {
	if err := r.db.WithContext(ctx).Save(rating).Error; err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

// Delete a rating by user and book
func (r *ratingRepository) Delete(ctx context.Context, userID string, bookID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.Rating{})
	if result.Error != nil {
		return fmt.Errorf("delete rating: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByUserAndBook retrieves a user's rating for a specific book
func (r *ratingRepository) GetByUserAndBook(ctx context.Context, userID string, bookID int64) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// ListRatingsForBook returns every rating of a book ordered by id
func (r *ratingRepository) ListRatingsForBook(ctx context.Context, bookID int64) ([]models.Rating, error) {
	var ratings []models.Rating
	if err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("id ASC").
		Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("list ratings for book %d: %w", bookID, err)
	}
	return ratings, nil
}

func (r *ratingRepository) GetFingerprint(ctx context.Context, bookID int64) (*models.Fingerprint, error) {
	var fp models.Fingerprint
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Take(&fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fingerprint %d: %w", bookID, err)
	}
	return &fp, nil
}

func (r *ratingRepository) UpsertFingerprint(ctx context.Context, fp *models.Fingerprint) error {
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}},
			UpdateAll: true,
		}).
		Create(fp).Error
	if err != nil {
		return fmt.Errorf("upsert fingerprint %d: %w", fp.BookID, err)
	}
	return nil
}

func (r *ratingRepository) WithinBookLock(ctx context.Context, bookID int64, fn func(tx RatingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// released automatically on commit or rollback
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", bookID).Error; err != nil {
			return fmt.Errorf("lock book %d: %w", bookID, err)
		}
		return fn(&ratingRepository{db: tx})
	})
}
