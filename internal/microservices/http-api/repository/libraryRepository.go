package repository

import (
	"context"
	"fmt"

	"theshelf/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// LibraryRepository reads a user's shelf and rating history.
type LibraryRepository interface {
	ListUserBooks(ctx context.Context, userID string) ([]models.UserBook, error)
	// ListUserRatings returns the user's ratings, most recently updated first.
	ListUserRatings(ctx context.Context, userID string) ([]models.Rating, error)
}

type libraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

func (r *libraryRepository) ListUserBooks(ctx context.Context, userID string) ([]models.UserBook, error) {
	var library []models.UserBook

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date_added DESC").
		Find(&library).Error; err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}

	return library, nil
}

func (r *libraryRepository) ListUserRatings(ctx context.Context, userID string) ([]models.Rating, error) {
	var ratings []models.Rating

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("list user ratings: %w", err)
	}

	return ratings, nil
}
