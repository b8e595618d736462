package repo

import (
	"context"
	"errors"

	"github.com/bookstore/services/bookclub/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const initBatchSize = 100

// ShelfRepository stores per-user reading status records
type ShelfRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewShelfRepository creates a new reading status repository
func NewShelfRepository(database *db.DB, logger *zap.Logger) *ShelfRepository {
	return &ShelfRepository{
		db:  database,
		log: logger,
	}
}

// CreateUsersBook stores a new reading status record
func (r *ShelfRepository) CreateUsersBook(ctx context.Context, ub *db.UsersBook) error {
	ub.ID = 0
	ub.Book = nil
	if err := r.db.WithContext(ctx).Create(ub).Error; err != nil {
		r.log.Error("Failed to create users book",
			zap.String("username", ub.Username),
			zap.Uint("book_id", ub.BookID),
			zap.Error(err),
		)
		return err
	}

	r.log.Info("Users book created", zap.Uint("id", ub.ID), zap.String("username", ub.Username))
	return nil
}

// GetUsersBook retrieves a record with its book
func (r *ShelfRepository) GetUsersBook(ctx context.Context, id uint) (*db.UsersBook, error) {
	var ub db.UsersBook
	err := r.db.WithContext(ctx).Preload("Book").First(&ub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUsersBookNotFound
		}
		r.log.Error("Failed to get users book", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &ub, nil
}

// ListUsersBooks returns the records owned by username, optionally limited to one status
func (r *ShelfRepository) ListUsersBooks(ctx context.Context, username string, status *db.ReadingStatus) ([]*db.UsersBook, error) {
	query := r.db.WithContext(ctx).Preload("Book").Where("username = ?", username)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var records []*db.UsersBook
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		r.log.Error("Failed to list users books", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return records, nil
}

// UpdateStatus sets the status of one record
func (r *ShelfRepository) UpdateStatus(ctx context.Context, id uint, status db.ReadingStatus) error {
	result := r.db.WithContext(ctx).Model(&db.UsersBook{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		r.log.Error("Failed to update status", zap.Uint("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUsersBookNotFound
	}

	r.log.Info("Status updated", zap.Uint("id", id), zap.String("status", string(status)))
	return nil
}

// InitializeForUser creates one UNREAD record per catalog book for username.
// All rows are written in a single transaction. Existing records are not
// consulted, so repeated calls produce duplicates.
func (r *ShelfRepository) InitializeForUser(ctx context.Context, username string) (int, error) {
	created := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bookIDs []uint
		if err := tx.Model(&db.Book{}).Order("id ASC").Pluck("id", &bookIDs).Error; err != nil {
			return err
		}
		if len(bookIDs) == 0 {
			return nil
		}

		records := make([]*db.UsersBook, len(bookIDs))
		for i, id := range bookIDs {
			records[i] = &db.UsersBook{
				Username: username,
				BookID:   id,
				Status:   db.StatusUnread,
			}
		}
		if err := tx.CreateInBatches(records, initBatchSize).Error; err != nil {
			return err
		}
		created = len(records)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to initialize users books", zap.String("username", username), zap.Error(err))
		return 0, err
	}

	r.log.Info("Users books initialized", zap.String("username", username), zap.Int("count", created))
	return created, nil
}
