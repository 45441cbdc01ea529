package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type Book struct {
	ID              int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string     `json:"title" gorm:"size:500;not null;index"`
	Author          string     `json:"author" gorm:"size:500;not null;index"`
	ISBN            *string    `json:"isbn,omitempty" gorm:"column:isbn;size:13;uniqueIndex"`
	Description     *string    `json:"description,omitempty" gorm:"type:text"`
	CoverURL        *string    `json:"cover_url,omitempty" gorm:"size:1000"`
	PublicationDate *time.Time `json:"publication_date,omitempty" gorm:"type:date"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime;index"`

	// Embedding of the book's descriptive text; NULL until generated.
	Embedding *pgvector.Vector `json:"-" gorm:"type:vector"`

	// association
	Genres []Genre `json:"genres,omitempty" gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;"`
}

func (Book) TableName() string {
	return "books"
}

// EmbeddingVector returns the stored embedding, or nil when absent.
func (b *Book) EmbeddingVector() []float32 {
	if b.Embedding == nil {
		return nil
	}
	v := b.Embedding.Slice()
	if len(v) == 0 {
		return nil
	}
	return v
}

// GenreNames returns the names of the book's genres in stored order.
func (b *Book) GenreNames() []string {
	names := make([]string, 0, len(b.Genres))
	for _, g := range b.Genres {
		names = append(names, g.Name)
	}
	return names
}
