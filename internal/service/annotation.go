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

// CommentRepository is the store behind book comments
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *db.Comment) error
	GetComment(ctx context.Context, id uint) (*db.Comment, error)
	ListCommentsByBook(ctx context.Context, bookID uint) ([]*db.Comment, error)
	UpdateComment(ctx context.Context, comment *db.Comment) error
	DeleteComment(ctx context.Context, id uint) error
}

// BookLookup resolves the books comments and reading records point at
type BookLookup interface {
	GetBook(ctx context.Context, id uint) (*db.Book, error)
	BookExists(ctx context.Context, id uint) (bool, error)
}

// Annotations manages comments scoped to a book
type Annotations struct {
	comments CommentRepository
	books    BookLookup
	log      *zap.Logger
}

// NewAnnotations creates a comment service
func NewAnnotations(comments CommentRepository, books BookLookup, log *zap.Logger) *Annotations {
	return &Annotations{comments: comments, books: books, log: log}
}

// AddComment attaches a validated comment to book bookID. On success
// comment carries its id and owning book.
func (s *Annotations) AddComment(ctx context.Context, caller auth.Caller, bookID uint, comment *db.Comment) error {
	if err := requireCapability(caller, auth.CapabilityRead); err != nil {
		return err
	}
	if err := validationError(comment.Validate()); err != nil {
		return err
	}

	book, err := s.books.GetBook(ctx, bookID)
	if errors.Is(err, repo.ErrBookNotFound) {
		return fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	if err != nil {
		return err
	}

	comment.BookID = book.ID
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, repo.ErrBookNotFound) {
			return fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
		}
		return err
	}
	return nil
}

// EditComment replaces content and rating of a comment of book bookID
func (s *Annotations) EditComment(ctx context.Context, caller auth.Caller, bookID, commentID uint, content string, rating int) (*db.Comment, error) {
	if err := requireCapability(caller, auth.CapabilityAdmin); err != nil {
		return nil, err
	}

	edit := db.Comment{Content: content, Rating: rating}
	if err := validationError(edit.Validate()); err != nil {
		return nil, err
	}

	exists, err := s.books.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}

	comment, err := s.commentOfBook(ctx, bookID, commentID)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	comment.Rating = rating
	if err := s.comments.UpdateComment(ctx, comment); err != nil {
		if errors.Is(err, repo.ErrCommentNotFound) {
			return nil, fmt.Errorf("comment %d: %w", commentID, ErrCommentNotFound)
		}
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment of book bookID. A missing book and a
// missing comment both yield ErrCommentNotFound with distinct messages.
func (s *Annotations) DeleteComment(ctx context.Context, caller auth.Caller, bookID, commentID uint) error {
	if err := requireCapability(caller, auth.CapabilityAdmin); err != nil {
		return err
	}

	exists, err := s.books.BookExists(ctx, bookID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("book %d does not exist: %w", bookID, ErrCommentNotFound)
	}

	if _, err := s.commentOfBook(ctx, bookID, commentID); err != nil {
		return err
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, repo.ErrCommentNotFound) {
			return fmt.Errorf("comment %d: %w", commentID, ErrCommentNotFound)
		}
		return err
	}
	return nil
}

// FindByID returns a comment or ErrCommentNotFound
func (s *Annotations) FindByID(ctx context.Context, commentID uint) (*db.Comment, error) {
	comment, err := s.comments.GetComment(ctx, commentID)
	if errors.Is(err, repo.ErrCommentNotFound) {
		return nil, fmt.Errorf("comment %d: %w", commentID, ErrCommentNotFound)
	}
	return comment, err
}

// ListForBook returns the comments of book bookID
func (s *Annotations) ListForBook(ctx context.Context, caller auth.Caller, bookID uint) ([]*db.Comment, error) {
	if err := requireCapability(caller, auth.CapabilityRead); err != nil {
		return nil, err
	}

	exists, err := s.books.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	return s.comments.ListCommentsByBook(ctx, bookID)
}

// commentOfBook loads a comment and checks it belongs to bookID
func (s *Annotations) commentOfBook(ctx context.Context, bookID, commentID uint) (*db.Comment, error) {
	comment, err := s.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.BookID != bookID {
		s.log.Debug("Comment belongs to another book",
			zap.Uint("comment_id", commentID),
			zap.Uint("book_id", bookID),
			zap.Uint("owner_book_id", comment.BookID),
		)
		return nil, fmt.Errorf("comment %d does not belong to book %d: %w", commentID, bookID, ErrCommentNotFound)
	}
	return comment, nil
}
