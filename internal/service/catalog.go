package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookstore/services/bookclub/internal/auth"
	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/internal/repo"
	"go.uber.org/zap"
)

// BookRepository is the store behind the catalog
type BookRepository interface {
	ListBooks(ctx context.Context) ([]*db.Book, error)
	SearchBooks(ctx context.Context, query string) ([]*db.Book, error)
	GetBook(ctx context.Context, id uint) (*db.Book, error)
	BookExists(ctx context.Context, id uint) (bool, error)
	CreateBook(ctx context.Context, book *db.Book) error
	UpdateBook(ctx context.Context, id uint, book *db.Book) ([]string, error)
	DeleteBook(ctx context.Context, id uint) (bool, error)
}

// Catalog manages books
type Catalog struct {
	books BookRepository
	log   *zap.Logger
}

// NewCatalog creates a catalog service
func NewCatalog(books BookRepository, log *zap.Logger) *Catalog {
	return &Catalog{books: books, log: log}
}

// ListAll returns every book
func (s *Catalog) ListAll(ctx context.Context, caller auth.Caller) ([]*db.Book, error) {
	if err := requireCapability(caller, auth.CapabilityRead); err != nil {
		return nil, err
	}
	return s.books.ListBooks(ctx)
}

// Search returns books whose title contains title, ignoring case
func (s *Catalog) Search(ctx context.Context, caller auth.Caller, title string) ([]*db.Book, error) {
	if err := requireCapability(caller, auth.CapabilityRead); err != nil {
		return nil, err
	}
	return s.books.SearchBooks(ctx, title)
}

// GetByID returns one book or ErrNotFound
func (s *Catalog) GetByID(ctx context.Context, caller auth.Caller, id uint) (*db.Book, error) {
	if err := requireCapability(caller, auth.CapabilityRead); err != nil {
		return nil, err
	}

	book, err := s.books.GetBook(ctx, id)
	if errors.Is(err, repo.ErrBookNotFound) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return book, err
}

// Add validates and stores a new book. The returned book carries its new id.
func (s *Catalog) Add(ctx context.Context, caller auth.Caller, book db.Book) (*db.Book, error) {
	if err := requireCapability(caller, auth.CapabilityAdmin); err != nil {
		return nil, err
	}
	if err := validationError(book.Validate()); err != nil {
		return nil, err
	}

	created := &db.Book{
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Genre:       book.Genre,
	}
	if err := s.books.CreateBook(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the four descriptive fields of book id. It returns the
// stored book and the names of the fields that changed.
func (s *Catalog) Update(ctx context.Context, caller auth.Caller, id uint, book db.Book) (*db.Book, []string, error) {
	if err := requireCapability(caller, auth.CapabilityAdmin); err != nil {
		return nil, nil, err
	}
	if err := validationError(book.Validate()); err != nil {
		return nil, nil, err
	}

	changed, err := s.books.UpdateBook(ctx, id, &book)
	if errors.Is(err, repo.ErrBookNotFound) {
		return nil, nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.books.GetBook(ctx, id)
	if errors.Is(err, repo.ErrBookNotFound) {
		return nil, nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	return updated, changed, nil
}

// Delete removes book id with its comments and reading status records.
// A missing id yields false, not an error.
func (s *Catalog) Delete(ctx context.Context, caller auth.Caller, id uint) (bool, error) {
	if err := requireCapability(caller, auth.CapabilityAdmin); err != nil {
		return false, err
	}
	return s.books.DeleteBook(ctx, id)
}

// ExistsByID reports whether book id is in the catalog
func (s *Catalog) ExistsByID(ctx context.Context, id uint) (bool, error) {
	return s.books.BookExists(ctx, id)
}

func requireCapability(caller auth.Caller, capability auth.Capability) error {
	if !caller.Can(capability) {
		return fmt.Errorf("%s capability required: %w", capability, ErrForbidden)
	}
	return nil
}
