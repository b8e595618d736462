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

// ShelfRepository is the store behind reading status records
type ShelfRepository interface {
	CreateUsersBook(ctx context.Context, ub *db.UsersBook) error
	GetUsersBook(ctx context.Context, id uint) (*db.UsersBook, error)
	ListUsersBooks(ctx context.Context, username string, status *db.ReadingStatus) ([]*db.UsersBook, error)
	UpdateStatus(ctx context.Context, id uint, status db.ReadingStatus) error
	InitializeForUser(ctx context.Context, username string) (int, error)
}

// StatusChange describes a successful SetStatus call
type StatusChange struct {
	Entry    *db.UsersBook
	Previous db.ReadingStatus
}

// Shelf manages per-user reading status. Every state may move to every other state.
type Shelf struct {
	records ShelfRepository
	books   BookLookup
	log     *zap.Logger
}

// NewShelf creates a reading status service
func NewShelf(records ShelfRepository, books BookLookup, log *zap.Logger) *Shelf {
	return &Shelf{records: records, books: books, log: log}
}

// ListForUser returns the caller's records. A non-empty statusFilter keeps
// only records in that status.
func (s *Shelf) ListForUser(ctx context.Context, caller auth.Caller, statusFilter string) ([]*db.UsersBook, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	var filter *db.ReadingStatus
	if statusFilter != "" {
		status, err := db.ParseStatus(statusFilter)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", statusFilter, ErrInvalidStatus)
		}
		filter = &status
	}
	return s.records.ListUsersBooks(ctx, caller.Username, filter)
}

// Track starts tracking book bookID for the caller with status UNREAD
func (s *Shelf) Track(ctx context.Context, caller auth.Caller, bookID uint) (*db.UsersBook, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	book, err := s.books.GetBook(ctx, bookID)
	if errors.Is(err, repo.ErrBookNotFound) {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	if err != nil {
		return nil, err
	}

	entry := &db.UsersBook{
		Username: caller.Username,
		BookID:   book.ID,
		Status:   db.StatusUnread,
	}
	if err := validationError(entry.Validate()); err != nil {
		return nil, err
	}
	if err := s.records.CreateUsersBook(ctx, entry); err != nil {
		return nil, err
	}
	entry.Book = book
	return entry, nil
}

// SetStatus moves record id to the status named by newStatusText. Only the
// owner of the record may change it; ownership is checked before the status
// text is parsed. Anonymous callers are rejected before the record is loaded.
func (s *Shelf) SetStatus(ctx context.Context, id uint, caller auth.Caller, newStatusText string) (*StatusChange, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	entry, err := s.records.GetUsersBook(ctx, id)
	if errors.Is(err, repo.ErrUsersBookNotFound) {
		return nil, fmt.Errorf("users book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if entry.Username != caller.Username {
		s.log.Warn("Status change by non-owner rejected",
			zap.Uint("id", id),
			zap.String("owner", entry.Username),
			zap.String("requester", caller.Username),
		)
		return nil, fmt.Errorf("users book %d is not owned by %q: %w", id, caller.Username, ErrForbidden)
	}

	status, err := db.ParseStatus(newStatusText)
	if err != nil {
		return nil, fmt.Errorf("%q, allowed statuses are READED, WANT_READ, UNREAD: %w", newStatusText, ErrInvalidStatus)
	}

	if err := s.records.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repo.ErrUsersBookNotFound) {
			return nil, fmt.Errorf("users book %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	previous := entry.Status
	entry.Status = status
	return &StatusChange{Entry: entry, Previous: previous}, nil
}

// InitializeForUser creates an UNREAD record for every catalog book owned
// by the caller and returns how many were created. Calling it twice creates
// a second record per book.
func (s *Shelf) InitializeForUser(ctx context.Context, caller auth.Caller) (int, error) {
	if !caller.Authenticated() {
		return 0, ErrUnauthenticated
	}
	return s.records.InitializeForUser(ctx, caller.Username)
}
