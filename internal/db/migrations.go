package db

import (
	"gorm.io/gorm"
)

// RunMigrations creates or updates the books, comments and users_books tables
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(&Book{}, &Comment{}, &UsersBook{}); err != nil {
		return err
	}

	if err := createIndexes(db.DB); err != nil {
		return err
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	// Covering indexes for the per-book report aggregations
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_comments_book_rating ON comments (book_id, rating)`,
		`CREATE INDEX IF NOT EXISTS idx_users_books_book_status ON users_books (book_id, status)`,
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
