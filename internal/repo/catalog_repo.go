package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookstore/services/bookclub/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrBookNotFound is returned when a book is not found
	ErrBookNotFound = errors.New("book not found")

	// ErrCommentNotFound is returned when a comment is not found
	ErrCommentNotFound = errors.New("comment not found")

	// ErrUsersBookNotFound is returned when a reading status record is not found
	ErrUsersBookNotFound = errors.New("users book not found")
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CatalogRepository handles book catalog operations
type CatalogRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(database *db.DB, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  database,
		log: logger,
	}
}

// ListBooks returns every book in id order
func (r *CatalogRepository) ListBooks(ctx context.Context) ([]*db.Book, error) {
	var books []*db.Book
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, err
	}
	return books, nil
}

// SearchBooks returns books whose title contains query, ignoring case
func (r *CatalogRepository) SearchBooks(ctx context.Context, query string) ([]*db.Book, error) {
	var books []*db.Book
	err := r.db.WithContext(ctx).
		Scopes(r.titleContains(query)).
		Order("id ASC").
		Find(&books).Error
	if err != nil {
		r.log.Error("Failed to search books", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return books, nil
}

// titleContains matches titles containing query. Case folding covers
// non-ASCII letters on both dialects.
func (r *CatalogRepository) titleContains(query string) func(*gorm.DB) *gorm.DB {
	condition := `unicode_lower(title) LIKE ? ESCAPE '\'`
	if r.db.Dialect() == "postgres" {
		condition = `title ILIKE ? ESCAPE '\'`
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(condition, pattern)
	}
}

// GetBook retrieves a book by id
func (r *CatalogRepository) GetBook(ctx context.Context, id uint) (*db.Book, error) {
	var book db.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return &book, nil
}

// BookExists reports whether a book with the given id is stored
func (r *CatalogRepository) BookExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Where("id = ?", id).Count(&count).Error; err != nil {
		r.log.Error("Failed to check book existence", zap.Uint("id", id), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

// CreateBook stores a new book; the store assigns its id
func (r *CatalogRepository) CreateBook(ctx context.Context, book *db.Book) error {
	book.ID = 0
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		r.log.Error("Failed to create book", zap.String("title", book.Title), zap.Error(err))
		return err
	}

	r.log.Info("Book created", zap.Uint("id", book.ID), zap.String("title", book.Title))
	return nil
}

// UpdateBook replaces title, author, description and genre of the book with
// the given id. It returns the names of the fields whose value changed.
func (r *CatalogRepository) UpdateBook(ctx context.Context, id uint, book *db.Book) ([]string, error) {
	existing, err := r.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	fieldsChanged := getChangedFields(existing, book)

	updates := map[string]interface{}{
		"title":       book.Title,
		"author":      book.Author,
		"description": book.Description,
		"genre":       book.Genre,
	}
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		r.log.Error("Failed to update book", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	r.log.Info("Book updated", zap.Uint("id", id), zap.Strings("fields_changed", fieldsChanged))
	return fieldsChanged, nil
}

// DeleteBook removes a book together with its comments and reading status
// records in one transaction. It returns false when no such book exists.
func (r *CatalogRepository) DeleteBook(ctx context.Context, id uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Book{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		// Dependents go first so no foreign key dangles
		if err := tx.Where("book_id = ?", id).Delete(&db.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("book_id = ?", id).Delete(&db.UsersBook{}).Error; err != nil {
			return fmt.Errorf("failed to delete users books: %w", err)
		}

		result := tx.Delete(&db.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		r.log.Error("Failed to delete book", zap.Uint("id", id), zap.Error(err))
		return false, err
	}

	if deleted {
		r.log.Info("Book deleted", zap.Uint("id", id))
	}
	return deleted, nil
}

// getChangedFields compares old and new book and returns list of changed fields
func getChangedFields(old, new *db.Book) []string {
	var changed []string
	if old.Title != new.Title {
		changed = append(changed, "title")
	}
	if old.Author != new.Author {
		changed = append(changed, "author")
	}
	if old.Description != new.Description {
		changed = append(changed, "description")
	}
	if old.Genre != new.Genre {
		changed = append(changed, "genre")
	}
	return changed
}

// Stats holds row counts of the three tables
type Stats struct {
	Books      int64
	Comments   int64
	UsersBooks int64
}

// GetStats returns catalog statistics for metrics
func (r *CatalogRepository) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&s.Books).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count books: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&db.Comment{}).Count(&s.Comments).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count comments: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&db.UsersBook{}).Count(&s.UsersBooks).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count users books: %w", err)
	}
	return s, nil
}
