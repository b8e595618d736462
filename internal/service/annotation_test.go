package service

import (
	"context"
	"testing"

	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCommentBindsBook(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune")

	comment := f.addComment(t, book.ID, "spice must flow", 5)
	assert.NotZero(t, comment.ID)
	assert.Equal(t, book.ID, comment.BookID)

	found, err := f.annotations.FindByID(context.Background(), comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "spice must flow", found.Content)
}

func TestAddCommentToMissingBookDoesNotMutate(t *testing.T) {
	f := newFixture(t)

	err := f.annotations.AddComment(context.Background(), reader, 404, &db.Comment{Content: "hello", Rating: 3})
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Zero(t, f.counts(t).Comments)
}

func TestAddCommentValidation(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune")

	err := f.annotations.AddComment(context.Background(), reader, book.ID, &db.Comment{Content: "", Rating: 9})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content of comment cannot be empty", verr.Fields["content"])
	assert.Equal(t, "rating must be at most 5", verr.Fields["rating"])
	assert.Zero(t, f.counts(t).Comments)
}

func TestEditComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dune := f.addBook(t, "Dune")
	emma := f.addBook(t, "Emma")
	comment := f.addComment(t, dune.ID, "ok", 3)

	edited, err := f.annotations.EditComment(ctx, admin, dune.ID, comment.ID, "better on reread", 4)
	require.NoError(t, err)
	assert.Equal(t, "better on reread", edited.Content)
	assert.Equal(t, 4, edited.Rating)
	assert.Equal(t, dune.ID, edited.BookID)

	_, err = f.annotations.EditComment(ctx, admin, 999, comment.ID, "x", 1)
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = f.annotations.EditComment(ctx, admin, dune.ID, 999, "x", 1)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	// A comment cannot be edited through another book
	_, err = f.annotations.EditComment(ctx, admin, emma.ID, comment.ID, "moved", 1)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	_, err = f.annotations.EditComment(ctx, reader, dune.ID, comment.ID, "x", 1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dune := f.addBook(t, "Dune")
	emma := f.addBook(t, "Emma")
	comment := f.addComment(t, dune.ID, "ok", 3)

	err := f.annotations.DeleteComment(ctx, admin, 999, comment.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
	assert.Contains(t, err.Error(), "book 999 does not exist")

	err = f.annotations.DeleteComment(ctx, admin, emma.ID, comment.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
	assert.Contains(t, err.Error(), "does not belong")

	require.NoError(t, f.annotations.DeleteComment(ctx, admin, dune.ID, comment.ID))
	assert.Zero(t, f.counts(t).Comments)

	err = f.annotations.DeleteComment(ctx, admin, dune.ID, comment.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestListForBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dune := f.addBook(t, "Dune")
	f.addComment(t, dune.ID, "one", 4)
	f.addComment(t, dune.ID, "two", 5)

	comments, err := f.annotations.ListForBook(ctx, reader, dune.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	_, err = f.annotations.ListForBook(ctx, reader, 999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}
