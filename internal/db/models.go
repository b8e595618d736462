package db

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// ReadingStatus is the reading progress a user tracks for a book
type ReadingStatus string

const (
	StatusUnread   ReadingStatus = "UNREAD"
	StatusWantRead ReadingStatus = "WANT_READ"
	StatusReaded   ReadingStatus = "READED"
)

// ErrUnknownStatus is returned by ParseStatus for text that names no status
var ErrUnknownStatus = errors.New("unknown reading status")

// ReadingStatuses lists every status in declaration order
var ReadingStatuses = []ReadingStatus{StatusReaded, StatusWantRead, StatusUnread}

// ParseStatus maps user supplied text onto a ReadingStatus, ignoring case.
// Surrounding whitespace is not stripped.
func ParseStatus(text string) (ReadingStatus, error) {
	candidate := ReadingStatus(strings.ToUpper(text))
	for _, s := range ReadingStatuses {
		if candidate == s {
			return s, nil
		}
	}
	return "", ErrUnknownStatus
}

// Book represents a book in the catalog database
type Book struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(100);not null;index:idx_books_title" json:"title"`
	Author      string    `gorm:"type:varchar(100);not null;index:idx_books_author" json:"author"`
	Description string    `gorm:"type:varchar(500);not null" json:"description"`
	Genre       string    `gorm:"type:varchar(50);not null;index:idx_books_genre" json:"genre"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// Validate checks the four user supplied fields and reports every violation
// keyed by its json field name.
func (b Book) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 100).Error("title must be between 1 and 100 characters"),
		),
		validation.Field(&b.Author,
			validation.Required.Error("author is required"),
			validation.Length(1, 100).Error("author must be between 1 and 100 characters"),
		),
		validation.Field(&b.Description,
			validation.Required.Error("description is required"),
			validation.Length(0, 500).Error("description must be at most 500 characters"),
		),
		validation.Field(&b.Genre,
			validation.Required.Error("genre is required"),
			validation.Length(0, 50).Error("genre must be at most 50 characters"),
		),
	)
}

// Comment is a rated annotation owned by exactly one book
type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Content   string    `gorm:"type:varchar(50);not null" json:"content"`
	Rating    int       `gorm:"not null" json:"rating"`
	BookID    uint      `gorm:"not null;index:idx_comments_book_id" json:"book_id"`
	Book      *Book     `gorm:"foreignKey:BookID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Comment model
func (Comment) TableName() string {
	return "comments"
}

// Validate checks content and rating
func (c Comment) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Content,
			validation.Required.Error("content of comment cannot be empty"),
			validation.Length(1, 50).Error("content of comment must not exceed 50 characters"),
		),
		validation.Field(&c.Rating,
			validation.Required.Error("rating must be at least 1"),
			validation.Min(1).Error("rating must be at least 1"),
			validation.Max(5).Error("rating must be at most 5"),
		),
	)
}

// UsersBook tracks one user's reading status for one book.
// Username is free text; there is no user table behind it.
type UsersBook struct {
	ID        uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string        `gorm:"type:varchar(100);not null;index:idx_users_books_owner,priority:1" json:"username"`
	Status    ReadingStatus `gorm:"type:varchar(20);not null;index:idx_users_books_owner,priority:2" json:"status"`
	BookID    uint          `gorm:"not null;index:idx_users_books_book_id" json:"book_id"`
	Book      *Book         `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName specifies the table name for UsersBook model
func (UsersBook) TableName() string {
	return "users_books"
}

// BeforeCreate hook defaults new records to UNREAD
func (ub *UsersBook) BeforeCreate(tx *gorm.DB) error {
	if ub.Status == "" {
		ub.Status = StatusUnread
	}
	return nil
}

// Validate checks the owner and status of the record
func (ub UsersBook) Validate() error {
	return validation.ValidateStruct(&ub,
		validation.Field(&ub.Username, validation.Required.Error("username is required")),
		validation.Field(&ub.BookID, validation.Required.Error("book is required")),
		validation.Field(&ub.Status, validation.In(StatusUnread, StatusWantRead, StatusReaded).Error("unknown reading status")),
	)
}
