package service

import (
	"context"
	"testing"

	"github.com/bookstore/services/bookclub/internal/auth"
	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/internal/repo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	reader = auth.Caller{Username: "alice", Capabilities: []auth.Capability{auth.CapabilityRead}}
	admin  = auth.Caller{Username: "root", Capabilities: []auth.Capability{auth.CapabilityAdmin}}
	both   = auth.Caller{Username: "bob", Capabilities: []auth.Capability{auth.CapabilityRead, auth.CapabilityAdmin}}
)

type fixture struct {
	db          *db.DB
	books       *repo.CatalogRepository
	catalog     *Catalog
	annotations *Annotations
	shelf       *Shelf
	stats       *Statistics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	log := zap.NewNop()
	books := repo.NewCatalogRepository(database, log)
	statsRepo, err := repo.NewStatsRepository(database, log)
	require.NoError(t, err)

	return &fixture{
		db:          database,
		books:       books,
		catalog:     NewCatalog(books, log),
		annotations: NewAnnotations(repo.NewCommentRepository(database, log), books, log),
		shelf:       NewShelf(repo.NewShelfRepository(database, log), books, log),
		stats:       NewStatistics(statsRepo, log),
	}
}

func (f *fixture) addBook(t *testing.T, title string) *db.Book {
	t.Helper()
	book, err := f.catalog.Add(context.Background(), admin, db.Book{
		Title:       title,
		Author:      "Author of " + title,
		Description: "About " + title,
		Genre:       "fiction",
	})
	require.NoError(t, err)
	return book
}

func (f *fixture) addComment(t *testing.T, bookID uint, content string, rating int) *db.Comment {
	t.Helper()
	comment := &db.Comment{Content: content, Rating: rating}
	require.NoError(t, f.annotations.AddComment(context.Background(), reader, bookID, comment))
	return comment
}

func (f *fixture) counts(t *testing.T) repo.Stats {
	t.Helper()
	stats, err := f.books.GetStats(context.Background())
	require.NoError(t, err)
	return stats
}
