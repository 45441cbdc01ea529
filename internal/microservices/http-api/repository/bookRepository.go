package repository

import (
	"context"
	"errors"
	"fmt"

	"theshelf/internal/microservices/http-api/models"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingCandidate is a book id paired with its stored embedding.
type EmbeddingCandidate struct {
	BookID    int64
	Embedding []float32
}

// PopularBook is a book together with its fingerprint.
type PopularBook struct {
	Book        models.Book
	Fingerprint models.Fingerprint
}

type BookRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	// ListByIDs returns the books that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []int64) ([]models.Book, error)

	// GetEmbedding returns nil, nil when the book exists but has no embedding.
	GetEmbedding(ctx context.Context, bookID int64) ([]float32, error)
	SetEmbedding(ctx context.Context, bookID int64, embedding []float32) error
	ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]models.Book, error)

	// ListCandidateBooks returns up to limit embedded books, newest first (created_at DESC, id DESC).
	ListCandidateBooks(ctx context.Context, excludeIDs []int64, limit int) ([]EmbeddingCandidate, error)
	ListBooksWithReliableFingerprint(ctx context.Context, minCount int, excludeIDs []int64) ([]models.Fingerprint, error)
	// ListPopular orders by total_rating_count DESC, book_id ASC.
	ListPopular(ctx context.Context, minCount int, minStar float64, excludeIDs []int64, limit int) ([]PopularBook, error)
	// ListByMood applies every bound (ANDed) to fingerprints with at least minCount ratings, ordered by book id.
	ListByMood(ctx context.Context, bounds []models.DimensionBound, minCount, limit int) ([]models.Book, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Preload("Genres").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Preload("Genres").
		Where("id IN ?", ids).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books by ids: %w", err)
	}
	return list, nil
}

func (r *bookRepository) GetEmbedding(ctx context.Context, bookID int64) ([]float32, error) {
	var row struct {
		Embedding *pgvector.Vector
	}
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Select("embedding").
		Where("id = ?", bookID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get embedding %d: %w", bookID, err)
	}
	if row.Embedding == nil {
		return nil, nil
	}
	return row.Embedding.Slice(), nil
}

func (r *bookRepository) SetEmbedding(ctx context.Context, bookID int64, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", bookID).
		Update("embedding", vec)
	if result.Error != nil {
		return fmt.Errorf("set embedding %d: %w", bookID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *bookRepository) ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Preload("Genres").
		Where("embedding IS NULL AND id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books without embedding: %w", err)
	}
	return list, nil
}

type candidateRow struct {
	ID        int64
	Embedding *pgvector.Vector
}

func (r *bookRepository) ListCandidateBooks(ctx context.Context, excludeIDs []int64, limit int) ([]EmbeddingCandidate, error) {
	var rows []candidateRow
	q := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Select("id", "embedding").
		Where("embedding IS NOT NULL")
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list candidate books: %w", err)
	}

	out := make([]EmbeddingCandidate, 0, len(rows))
	for _, row := range rows {
		if row.Embedding == nil {
			continue
		}
		out = append(out, EmbeddingCandidate{BookID: row.ID, Embedding: row.Embedding.Slice()})
	}
	return out, nil
}

func (r *bookRepository) ListBooksWithReliableFingerprint(ctx context.Context, minCount int, excludeIDs []int64) ([]models.Fingerprint, error) {
	var fps []models.Fingerprint
	q := r.db.WithContext(ctx).Where("total_rating_count >= ?", minCount)
	if len(excludeIDs) > 0 {
		q = q.Where("book_id NOT IN ?", excludeIDs)
	}
	if err := q.Order("book_id ASC").Find(&fps).Error; err != nil {
		return nil, fmt.Errorf("list reliable fingerprints: %w", err)
	}
	return fps, nil
}

func (r *bookRepository) ListPopular(ctx context.Context, minCount int, minStar float64, excludeIDs []int64, limit int) ([]PopularBook, error) {
	if limit <= 0 {
		return []PopularBook{}, nil
	}
	var fps []models.Fingerprint
	q := r.db.WithContext(ctx).
		Preload("Book.Genres").
		Where("total_rating_count >= ? AND star_equivalent >= ?", minCount, minStar)
	if len(excludeIDs) > 0 {
		q = q.Where("book_id NOT IN ?", excludeIDs)
	}
	if err := q.Order("total_rating_count DESC").
		Order("book_id ASC").
		Limit(limit).
		Find(&fps).Error; err != nil {
		return nil, fmt.Errorf("list popular books: %w", err)
	}

	out := make([]PopularBook, 0, len(fps))
	for _, fp := range fps {
		if fp.Book == nil {
			continue
		}
		book := *fp.Book
		fp.Book = nil
		out = append(out, PopularBook{Book: book, Fingerprint: fp})
	}
	return out, nil
}

func (r *bookRepository) ListByMood(ctx context.Context, bounds []models.DimensionBound, minCount, limit int) ([]models.Book, error) {
	var fps []models.Fingerprint
	q := r.db.WithContext(ctx).
		Preload("Book.Genres").
		Where("total_rating_count >= ?", minCount)
	for _, b := range bounds {
		// column names come from the fixed Dimension table, never from input
		col := b.Dimension.Column()
		if b.Min != nil {
			q = q.Where(col+" >= ?", *b.Min)
		}
		if b.Max != nil {
			q = q.Where(col+" <= ?", *b.Max)
		}
	}
	if err := q.Order("book_id ASC").Limit(limit).Find(&fps).Error; err != nil {
		return nil, fmt.Errorf("list books by mood: %w", err)
	}

	books := make([]models.Book, 0, len(fps))
	for _, fp := range fps {
		if fp.Book != nil {
			books = append(books, *fp.Book)
		}
	}
	return books, nil
}
