package grpc_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bookstore/services/bookclub/internal/api"
	"github.com/bookstore/services/bookclub/internal/auth"
	"github.com/bookstore/services/bookclub/internal/clients"
	"github.com/bookstore/services/bookclub/internal/db"
	grpcserver "github.com/bookstore/services/bookclub/internal/grpc"
	"github.com/bookstore/services/bookclub/internal/repo"
	"github.com/bookstore/services/bookclub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// MockPublisher records published event types
type MockPublisher struct {
	mu     sync.Mutex
	events []string
	seen   chan string
}

func newMockPublisher() *MockPublisher {
	return &MockPublisher{seen: make(chan string, 64)}
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, payload map[string]interface{}) error {
	m.mu.Lock()
	m.events = append(m.events, eventType)
	m.mu.Unlock()
	m.seen <- eventType
	return nil
}

func (m *MockPublisher) IsHealthy() bool { return true }

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) waitFor(t *testing.T, eventType string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-m.seen:
			if got == eventType {
				return
			}
		case <-timeout:
			t.Fatalf("event %s not published", eventType)
		}
	}
}

type testEnv struct {
	client    *clients.BookClubClient
	conn      *grpc.ClientConn
	verifier  *auth.Verifier
	publisher *MockPublisher
}

func (e *testEnv) as(t *testing.T, username string, roles ...string) *clients.BookClubClient {
	t.Helper()
	token, err := e.verifier.Issue(username, roles, time.Hour)
	require.NoError(t, err)
	return e.client.WithToken(token)
}

func setupTestServer(t *testing.T) *testEnv {
	database, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database))

	log := zap.NewNop()
	books := repo.NewCatalogRepository(database, log)
	statsRepo, err := repo.NewStatsRepository(database, log)
	require.NoError(t, err)

	services := grpcserver.Services{
		Catalog:     service.NewCatalog(books, log),
		Annotations: service.NewAnnotations(repo.NewCommentRepository(database, log), books, log),
		Shelf:       service.NewShelf(repo.NewShelfRepository(database, log), books, log),
		Statistics:  service.NewStatistics(statsRepo, log),
	}
	publisher := newMockPublisher()
	verifier := auth.NewVerifier("test-secret", "client_user", "client_admin")

	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcserver.CorrelationInterceptor(),
		grpcserver.LoggingInterceptor(log, nil),
		auth.UnaryServerInterceptor(verifier, log),
	))
	grpcserver.RegisterBookClubServer(s, grpcserver.NewBookClubService(services, publisher, nil, log))
	grpc_health_v1.RegisterHealthServer(s, grpcserver.NewHealthServer(database, publisher, log))

	go func() {
		if err := s.Serve(lis); err != nil {
			t.Logf("Server exited with error: %v", err)
		}
	}()

	client, conn, err := clients.Dial("passthrough:///bufnet", log,
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		s.Stop()
		database.Close()
	})

	return &testEnv{
		client:    client,
		conn:      conn,
		verifier:  verifier,
		publisher: publisher,
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var dune = api.BookInput{Title: "Dune", Author: "Herbert", Description: "Desert planet", Genre: "sci-fi"}

func TestCreateAndGetBook(t *testing.T) {
	env := setupTestServer(t)
	ctx := testContext(t)
	admin := env.as(t, "root", "client_admin")
	reader := env.as(t, "alice", "client_user")

	created, err := admin.CreateBook(ctx, dune)
	require.NoError(t, err)
	require.NotZero(t, created.Book.ID)
	env.publisher.waitFor(t, "bookclub.book.created")

	got, err := reader.GetBook(ctx, created.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Book.Title)
	assert.Equal(t, "Herbert", got.Book.Author)

	found, err := reader.SearchBooks(ctx, "DUN")
	require.NoError(t, err)
	require.Len(t, found.Books, 1)

	_, err = reader.GetBook(ctx, 999)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestCreateBookValidation(t *testing.T) {
	env := setupTestServer(t)
	ctx := testContext(t)
	admin := env.as(t, "root", "client_admin")

	_, err := admin.CreateBook(ctx, api.BookInput{Title: "Dune"})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())

	var fields []string
	for _, detail := range st.Details() {
		if br, ok := detail.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields = append(fields, v.GetField())
			}
		}
	}
	assert.Equal(t, []string{"author", "description", "genre"}, fields)
}

func TestCapabilityMapping(t *testing.T) {
	env := setupTestServer(t)
	ctx := testContext(t)
	reader := env.as(t, "alice", "client_user")

	_, err := reader.CreateBook(ctx, dune)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = env.client.ListBooks(ctx)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = env.client.ListShelf(ctx, "")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = env.client.WithToken("garbage").ListBooks(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = reader.TotalRatings(ctx)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestCommentsAndReports(t *testing.T) {
	env := setupTestServer(t)
	ctx := testContext(t)
	admin := env.as(t, "root", "client_admin")
	reader := env.as(t, "alice", "client_user")

	book, err := admin.CreateBook(ctx, dune)
	require.NoError(t, err)
	id := book.Book.ID

	_, err = reader.AddComment(ctx, id, "spice", 4)
	require.NoError(t, err)
	second, err := reader.AddComment(ctx, id, "sandworms!", 5)
	require.NoError(t, err)
	env.publisher.waitFor(t, "bookclub.comment.added")

	_, err = reader.AddComment(ctx, id, "", 4)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = reader.AddComment(ctx, 999, "hi", 4)
	assert.Equal(t, codes.NotFound, status.Code(err))

	comments, err := reader.ListComments(ctx, id)
	require.NoError(t, err)
	assert.Len(t, comments.Comments, 2)

	totals, err := admin.TotalRatings(ctx)
	require.NoError(t, err)
	require.Len(t, totals.Rows, 1)
	assert.Equal(t, int64(9), totals.Rows[0].TotalRating)

	top, err := admin.MostCommented(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), top.Rows[0].Comments)

	lengths, err := admin.CommentLengths(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, lengths.Rows[0].AverageLength, 1e-9)

	edited, err := admin.EditComment(ctx, id, second.Comment.ID, "worms", 3)
	require.NoError(t, err)
	assert.Equal(t, "worms", edited.Comment.Content)

	require.NoError(t, admin.DeleteComment(ctx, id, second.Comment.ID))
	err = admin.DeleteComment(ctx, id, second.Comment.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestShelfOwnership(t *testing.T) {
	env := setupTestServer(t)
	ctx := testContext(t)
	admin := env.as(t, "root", "client_admin")
	alice := env.as(t, "alice", "client_user")
	bob := env.as(t, "bob", "client_user")

	book, err := admin.CreateBook(ctx, dune)
	require.NoError(t, err)

	tracked, err := alice.TrackBook(ctx, book.Book.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusUnread, tracked.Entry.Status)

	updated, err := alice.SetStatus(ctx, tracked.Entry.ID, "readed")
	require.NoError(t, err)
	assert.Equal(t, db.StatusReaded, updated.Entry.Status)
	env.publisher.waitFor(t, "bookclub.shelf.status_changed")

	_, err = bob.SetStatus(ctx, tracked.Entry.ID, "UNREAD")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = alice.SetStatus(ctx, tracked.Entry.ID, "finished")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = alice.SetStatus(ctx, 999, "UNREAD")
	assert.Equal(t, codes.NotFound, status.Code(err))

	initialized, err := bob.InitShelf(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, initialized.Created)

	shelf, err := alice.ListShelf(ctx, "READED")
	require.NoError(t, err)
	require.Len(t, shelf.Entries, 1)
	require.NotNil(t, shelf.Entries[0].Book)
	assert.Equal(t, "Dune", shelf.Entries[0].Book.Title)

	readers, err := admin.ReaderCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), readers.Rows[0].Readers)

	stats, err := admin.ReadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Rows[0].ReadCount)
}

func TestDeleteBook(t *testing.T) {
	env := setupTestServer(t)
	ctx := testContext(t)
	admin := env.as(t, "root", "client_admin")

	book, err := admin.CreateBook(ctx, dune)
	require.NoError(t, err)

	updated, err := admin.UpdateBook(ctx, book.Book.ID, api.BookInput{Title: "Dune Messiah", Author: "Herbert", Description: "Desert planet", Genre: "sci-fi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, updated.FieldsChanged)
	env.publisher.waitFor(t, "bookclub.book.updated")

	resp, err := admin.DeleteBook(ctx, book.Book.ID)
	require.NoError(t, err)
	assert.True(t, resp.Deleted)
	env.publisher.waitFor(t, "bookclub.book.deleted")

	resp, err = admin.DeleteBook(ctx, book.Book.ID)
	require.NoError(t, err)
	assert.False(t, resp.Deleted)
}

func TestHealthCheck(t *testing.T) {
	env := setupTestServer(t)

	resp, err := grpc_health_v1.NewHealthClient(env.conn).Check(testContext(t), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
