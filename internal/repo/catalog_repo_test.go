package repo

import (
	"context"
	"testing"

	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *db.DB {
	database, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database))
	return database
}

func testLogger() *zap.Logger {
	return logger.NewLogger("test", "error")
}

func seedBook(t *testing.T, r *CatalogRepository, title string) *db.Book {
	book := &db.Book{
		Title:       title,
		Author:      "Author of " + title,
		Description: "About " + title,
		Genre:       "fiction",
	}
	require.NoError(t, r.CreateBook(context.Background(), book))
	return book
}

func TestCreateBook(t *testing.T) {
	repo := NewCatalogRepository(setupTestDB(t), testLogger())
	ctx := context.Background()

	book := &db.Book{ID: 42, Title: "Dune", Author: "Frank Herbert", Description: "Spice", Genre: "sci-fi"}
	require.NoError(t, repo.CreateBook(ctx, book))
	assert.NotZero(t, book.ID)
	assert.NotEqual(t, uint(42), book.ID, "caller supplied ids are ignored")

	retrieved, err := repo.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", retrieved.Title)
	assert.Equal(t, "Frank Herbert", retrieved.Author)
	assert.Equal(t, "sci-fi", retrieved.Genre)
}

func TestGetBookNotFound(t *testing.T) {
	repo := NewCatalogRepository(setupTestDB(t), testLogger())

	_, err := repo.GetBook(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBookNotFound)

	exists, err := repo.BookExists(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateBook(t *testing.T) {
	repo := NewCatalogRepository(setupTestDB(t), testLogger())
	ctx := context.Background()
	book := seedBook(t, repo, "Dune")

	changed, err := repo.UpdateBook(ctx, book.ID, &db.Book{
		Title:       "Dune Messiah",
		Author:      book.Author,
		Description: book.Description,
		Genre:       "classic",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"title", "genre"}, changed)

	updated, err := repo.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "classic", updated.Genre)

	changed, err = repo.UpdateBook(ctx, book.ID, updated)
	require.NoError(t, err)
	assert.Empty(t, changed)

	_, err = repo.UpdateBook(ctx, 999, updated)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestListBooks(t *testing.T) {
	repo := NewCatalogRepository(setupTestDB(t), testLogger())
	ctx := context.Background()

	books, err := repo.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	first := seedBook(t, repo, "Dune")
	second := seedBook(t, repo, "Emma")

	books, err = repo.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, first.ID, books[0].ID)
	assert.Equal(t, second.ID, books[1].ID)
}

func TestSearchBooks(t *testing.T) {
	repo := NewCatalogRepository(setupTestDB(t), testLogger())
	ctx := context.Background()

	seedBook(t, repo, "Dune")
	seedBook(t, repo, "Children of Dune")
	seedBook(t, repo, "Emma")
	seedBook(t, repo, "100% Pure")
	seedBook(t, repo, "Émile ou de l'éducation")

	tests := []struct {
		query string
		want  []string
	}{
		{"dune", []string{"Dune", "Children of Dune"}},
		{"DUNE", []string{"Dune", "Children of Dune"}},
		{"mm", []string{"Emma"}},
		{"%", []string{"100% Pure"}},
		{"ÉMILE", []string{"Émile ou de l'éducation"}},
		{"émile", []string{"Émile ou de l'éducation"}},
		{"L'ÉDUCATION", []string{"Émile ou de l'éducation"}},
		{"xyz", nil},
		{"", []string{"Dune", "Children of Dune", "Emma", "100% Pure", "Émile ou de l'éducation"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			books, err := repo.SearchBooks(ctx, tt.query)
			require.NoError(t, err)

			var titles []string
			for _, b := range books {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestDeleteBookCascades(t *testing.T) {
	database := setupTestDB(t)
	repo := NewCatalogRepository(database, testLogger())
	comments := NewCommentRepository(database, testLogger())
	shelf := NewShelfRepository(database, testLogger())
	ctx := context.Background()

	book := seedBook(t, repo, "Dune")
	other := seedBook(t, repo, "Emma")
	require.NoError(t, comments.CreateComment(ctx, &db.Comment{Content: "great", Rating: 5, BookID: book.ID}))
	require.NoError(t, comments.CreateComment(ctx, &db.Comment{Content: "fine", Rating: 3, BookID: other.ID}))
	require.NoError(t, shelf.CreateUsersBook(ctx, &db.UsersBook{Username: "alice", BookID: book.ID}))

	deleted, err := repo.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)

	remaining, err := comments.ListCommentsByBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	entries, err := shelf.ListUsersBooks(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Books: 1, Comments: 1, UsersBooks: 0}, stats)

	// Second delete is a no-op
	deleted, err = repo.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
