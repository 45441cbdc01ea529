package models

import "time"

// ReadingStatus is the state of a book on a user's shelf.
type ReadingStatus string

const (
	StatusWantToRead       ReadingStatus = "want_to_read"
	StatusCurrentlyReading ReadingStatus = "currently_reading"
	StatusFinished         ReadingStatus = "finished"
	StatusDNF              ReadingStatus = "dnf"
)

// Closed reports whether the user is done with the book, finished or abandoned.
func (s ReadingStatus) Closed() bool {
	return s == StatusFinished || s == StatusDNF
}

// UserBook is a library entry.
type UserBook struct {
	ID           int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string        `gorm:"type:uuid;not null;uniqueIndex:uq_user_book" json:"user_id"`
	BookID       int64         `gorm:"not null;uniqueIndex:uq_user_book" json:"book_id"`
	Status       ReadingStatus `gorm:"type:text;not null;default:'want_to_read'" json:"status"`
	DateAdded    time.Time     `gorm:"autoCreateTime" json:"date_added"`
	DateStarted  *time.Time    `json:"date_started,omitempty"`
	DateFinished *time.Time    `json:"date_finished,omitempty"`

	// Associations
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Book *Book `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;" json:"book,omitempty"`
}

func (UserBook) TableName() string {
	return "user_books"
}
