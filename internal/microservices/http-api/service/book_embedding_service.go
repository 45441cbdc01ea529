package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"theshelf/internal/embedding"
	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/repository"
	"theshelf/internal/worker"

	"gorm.io/gorm"
)

var errNotEmbedded = errors.New("embedding not available")

// EmbeddingResult reports the outcome of a refresh. A failed embedding call is
// not an error: the stored vector is left untouched and Embedded is false.
type EmbeddingResult struct {
	BookID     int64
	Embedded   bool
	Dimensions int
}

type BookEmbeddingService interface {
	Refresh(ctx context.Context, bookID int64) (*EmbeddingResult, error)
	// Backfill embeds every book that has no vector yet.
	Backfill(ctx context.Context, workers, batchSize int) (worker.Stats, error)
}

type bookEmbeddingService struct {
	bookRepo repository.BookRepository
	embedder embedding.Service
	logger   *slog.Logger
}

func NewBookEmbeddingService(bookRepo repository.BookRepository, embedder embedding.Service, logger *slog.Logger) BookEmbeddingService {
	if embedder == nil {
		embedder = embedding.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &bookEmbeddingService{
		bookRepo: bookRepo,
		embedder: embedder,
		logger:   logger.With("component", "book_embedding_service"),
	}
}

func (s *bookEmbeddingService) Refresh(ctx context.Context, bookID int64) (*EmbeddingResult, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return s.embedBook(ctx, book)
}

func (s *bookEmbeddingService) embedBook(ctx context.Context, book *models.Book) (*EmbeddingResult, error) {
	result := &EmbeddingResult{BookID: book.ID}

	var description string
	if book.Description != nil {
		description = *book.Description
	}
	text := embedding.BookText(book.Title, book.Author, book.GenreNames(), description)

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("book_embedding_failed", "book_id", book.ID, "error", err)
		return result, nil
	}
	if len(vec) == 0 {
		return result, nil
	}

	if err := s.bookRepo.SetEmbedding(ctx, book.ID, vec); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("store embedding for book %d: %w", book.ID, err)
	}

	result.Embedded = true
	result.Dimensions = len(vec)
	return result, nil
}

func (s *bookEmbeddingService) Backfill(ctx context.Context, workers, batchSize int) (worker.Stats, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	pool := worker.New(ctx, workers, s.logger)
	pool.Start()

	var afterID int64
	for {
		books, err := s.bookRepo.ListWithoutEmbedding(ctx, afterID, batchSize)
		if err != nil {
			stats := pool.Shutdown()
			return stats, fmt.Errorf("list books without embedding: %w", err)
		}

		for i := range books {
			book := books[i]
			pool.Submit(func(ctx context.Context) error {
				res, err := s.embedBook(ctx, &book)
				if err != nil {
					return err
				}
				if !res.Embedded {
					return fmt.Errorf("book %d: %w", book.ID, errNotEmbedded)
				}
				return nil
			})
		}

		if len(books) < batchSize {
			break
		}
		afterID = books[len(books)-1].ID
	}

	stats := pool.Wait()
	s.logger.Info("embedding_backfill_finished",
		"embedded", stats.Succeeded,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)
	return stats, ctx.Err()
}
