package dto

import (
	"time"

	"theshelf/internal/microservices/http-api/models"
	"theshelf/internal/microservices/http-api/service"
)

// BookResponse DTO for responses
type BookResponse struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	ISBN            *string         `json:"isbn,omitempty"`
	Description     *string         `json:"description,omitempty"`
	CoverURL        *string         `json:"cover_url,omitempty"`
	PublicationDate *time.Time      `json:"publication_date,omitempty"`
	Genres          []GenreResponse `json:"genres"`
	HasEmbedding    bool            `json:"has_embedding"`
}

func BookFromModel(b models.Book) BookResponse {
	genres := make([]GenreResponse, 0, len(b.Genres))
	for _, g := range b.Genres {
		genres = append(genres, GenreFromModel(g))
	}
	return BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Description:     b.Description,
		CoverURL:        b.CoverURL,
		PublicationDate: b.PublicationDate,
		Genres:          genres,
		HasEmbedding:    b.EmbeddingVector() != nil,
	}
}

func BooksFromModels(books []models.Book) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, BookFromModel(b))
	}
	return out
}

// SimilarBookResponse is one similarity hit
type SimilarBookResponse struct {
	Book  BookResponse `json:"book"`
	Score float64      `json:"score"`
}

type SimilarBooksResponse struct {
	BookID   int64                 `json:"book_id"`
	Strategy string                `json:"strategy"`
	Data     []SimilarBookResponse `json:"data"`
}

func NewSimilarBooksResponse(bookID int64, strategy string, hits []service.ScoredBook) SimilarBooksResponse {
	data := make([]SimilarBookResponse, 0, len(hits))
	for _, h := range hits {
		data = append(data, SimilarBookResponse{Book: BookFromModel(h.Book), Score: Round(h.Score, 4)})
	}
	return SimilarBooksResponse{BookID: bookID, Strategy: strategy, Data: data}
}

// EmbeddingResponse reports the outcome of an embedding refresh
type EmbeddingResponse struct {
	BookID     int64 `json:"book_id"`
	Embedded   bool  `json:"embedded"`
	Dimensions int   `json:"dimensions,omitempty"`
}

func EmbeddingFromResult(r *service.EmbeddingResult) EmbeddingResponse {
	return EmbeddingResponse{BookID: r.BookID, Embedded: r.Embedded, Dimensions: r.Dimensions}
}
