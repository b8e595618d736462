package repo

import (
	"context"
	"errors"

	"github.com/bookstore/services/bookclub/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CommentRepository stores comments attached to books
type CommentRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(database *db.DB, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{
		db:  database,
		log: logger,
	}
}

// CreateComment stores a new comment for comment.BookID. The owning book is
// checked in the same transaction as the insert; a missing book yields
// ErrBookNotFound.
func (r *CommentRepository) CreateComment(ctx context.Context, comment *db.Comment) error {
	comment.ID = 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Book{}).Where("id = ?", comment.BookID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrBookNotFound
		}
		return tx.Omit("Book").Create(comment).Error
	})
	if errors.Is(err, ErrBookNotFound) {
		return err
	}
	if err != nil {
		r.log.Error("Failed to create comment", zap.Uint("book_id", comment.BookID), zap.Error(err))
		return err
	}

	r.log.Info("Comment created", zap.Uint("id", comment.ID), zap.Uint("book_id", comment.BookID))
	return nil
}

// GetComment retrieves a comment by id
func (r *CommentRepository) GetComment(ctx context.Context, id uint) (*db.Comment, error) {
	var comment db.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		r.log.Error("Failed to get comment", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &comment, nil
}

// ListCommentsByBook returns the comments of one book in id order
func (r *CommentRepository) ListCommentsByBook(ctx context.Context, bookID uint) ([]*db.Comment, error) {
	var comments []*db.Comment
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Order("id ASC").Find(&comments).Error
	if err != nil {
		r.log.Error("Failed to list comments", zap.Uint("book_id", bookID), zap.Error(err))
		return nil, err
	}
	return comments, nil
}

// UpdateComment overwrites content and rating of a stored comment. The owning
// book is never touched.
func (r *CommentRepository) UpdateComment(ctx context.Context, comment *db.Comment) error {
	result := r.db.WithContext(ctx).Model(&db.Comment{}).
		Where("id = ?", comment.ID).
		Updates(map[string]interface{}{
			"content": comment.Content,
			"rating":  comment.Rating,
		})
	if result.Error != nil {
		r.log.Error("Failed to update comment", zap.Uint("id", comment.ID), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}

	r.log.Info("Comment updated", zap.Uint("id", comment.ID))
	return nil
}

// DeleteComment removes a comment by id
func (r *CommentRepository) DeleteComment(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&db.Comment{}, id)
	if result.Error != nil {
		r.log.Error("Failed to delete comment", zap.Uint("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}

	r.log.Info("Comment deleted", zap.Uint("id", id))
	return nil
}
