package clients

import (
	"context"
	"fmt"

	"github.com/bookstore/services/bookclub/internal/api"
	grpcserver "github.com/bookstore/services/bookclub/internal/grpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// BookClubClient is a typed client for the BookClub gRPC service
type BookClubClient struct {
	conn  grpc.ClientConnInterface
	token string
	log   *zap.Logger
}

// Dial connects to a BookClub service at target without transport security.
// opts are applied after the default credentials.
func Dial(target string, log *zap.Logger, opts ...grpc.DialOption) (*BookClubClient, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to bookclub service: %w", err)
	}

	log.Info("BookClub client created", zap.String("target", target))
	return NewBookClubClient(conn, log), conn, nil
}

// NewBookClubClient wraps an existing connection
func NewBookClubClient(conn grpc.ClientConnInterface, log *zap.Logger) *BookClubClient {
	return &BookClubClient{conn: conn, log: log}
}

// WithToken returns a client that sends token as a bearer credential
func (c *BookClubClient) WithToken(token string) *BookClubClient {
	clone := *c
	clone.token = token
	return &clone
}

func (c *BookClubClient) invoke(ctx context.Context, method string, req, resp interface{}) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return c.conn.Invoke(ctx, api.FullMethod(method), req, resp, grpc.CallContentSubtype(grpcserver.CodecName))
}

// call invokes method and decodes the reply into a new Resp
func call[Resp any](ctx context.Context, c *BookClubClient, method string, req interface{}) (*Resp, error) {
	resp := new(Resp)
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *BookClubClient) ListBooks(ctx context.Context) (*api.BooksResponse, error) {
	return call[api.BooksResponse](ctx, c, api.MethodListBooks, &api.ListBooksRequest{})
}

func (c *BookClubClient) SearchBooks(ctx context.Context, title string) (*api.BooksResponse, error) {
	return call[api.BooksResponse](ctx, c, api.MethodSearchBooks, &api.SearchBooksRequest{Title: title})
}

func (c *BookClubClient) GetBook(ctx context.Context, id uint) (*api.BookResponse, error) {
	return call[api.BookResponse](ctx, c, api.MethodGetBook, &api.GetBookRequest{ID: id})
}

func (c *BookClubClient) CreateBook(ctx context.Context, book api.BookInput) (*api.BookResponse, error) {
	return call[api.BookResponse](ctx, c, api.MethodCreateBook, &api.CreateBookRequest{Book: book})
}

func (c *BookClubClient) UpdateBook(ctx context.Context, id uint, book api.BookInput) (*api.UpdateBookResponse, error) {
	return call[api.UpdateBookResponse](ctx, c, api.MethodUpdateBook, &api.UpdateBookRequest{ID: id, Book: book})
}

func (c *BookClubClient) DeleteBook(ctx context.Context, id uint) (*api.DeleteBookResponse, error) {
	return call[api.DeleteBookResponse](ctx, c, api.MethodDeleteBook, &api.DeleteBookRequest{ID: id})
}

func (c *BookClubClient) AddComment(ctx context.Context, bookID uint, content string, rating int) (*api.CommentResponse, error) {
	req := &api.AddCommentRequest{BookID: bookID, Content: content, Rating: rating}
	return call[api.CommentResponse](ctx, c, api.MethodAddComment, req)
}

func (c *BookClubClient) EditComment(ctx context.Context, bookID, commentID uint, content string, rating int) (*api.CommentResponse, error) {
	req := &api.EditCommentRequest{BookID: bookID, CommentID: commentID, Content: content, Rating: rating}
	return call[api.CommentResponse](ctx, c, api.MethodEditComment, req)
}

func (c *BookClubClient) DeleteComment(ctx context.Context, bookID, commentID uint) error {
	req := &api.DeleteCommentRequest{BookID: bookID, CommentID: commentID}
	return c.invoke(ctx, api.MethodDeleteComment, req, &api.Empty{})
}

func (c *BookClubClient) ListComments(ctx context.Context, bookID uint) (*api.CommentsResponse, error) {
	return call[api.CommentsResponse](ctx, c, api.MethodListComments, &api.ListCommentsRequest{BookID: bookID})
}

// ListShelf lists the caller's records, optionally filtered by status
func (c *BookClubClient) ListShelf(ctx context.Context, status string) (*api.ShelfResponse, error) {
	return call[api.ShelfResponse](ctx, c, api.MethodListShelf, &api.ListShelfRequest{Status: status})
}

func (c *BookClubClient) TrackBook(ctx context.Context, bookID uint) (*api.ShelfEntryResponse, error) {
	return call[api.ShelfEntryResponse](ctx, c, api.MethodTrackBook, &api.TrackBookRequest{BookID: bookID})
}

func (c *BookClubClient) SetStatus(ctx context.Context, id uint, status string) (*api.ShelfEntryResponse, error) {
	return call[api.ShelfEntryResponse](ctx, c, api.MethodSetStatus, &api.SetStatusRequest{ID: id, Status: status})
}

func (c *BookClubClient) InitShelf(ctx context.Context) (*api.InitShelfResponse, error) {
	return call[api.InitShelfResponse](ctx, c, api.MethodInitShelf, &api.InitShelfRequest{})
}

func (c *BookClubClient) TotalRatings(ctx context.Context) (*api.TotalRatingsResponse, error) {
	return call[api.TotalRatingsResponse](ctx, c, api.MethodTotalRatings, &api.ReportRequest{})
}

func (c *BookClubClient) MostCommented(ctx context.Context, limit int) (*api.MostCommentedResponse, error) {
	return call[api.MostCommentedResponse](ctx, c, api.MethodMostCommented, &api.MostCommentedRequest{Limit: limit})
}

func (c *BookClubClient) ReadStats(ctx context.Context) (*api.ReadStatsResponse, error) {
	return call[api.ReadStatsResponse](ctx, c, api.MethodReadStats, &api.ReportRequest{})
}

func (c *BookClubClient) CommentLengths(ctx context.Context) (*api.CommentLengthsResponse, error) {
	return call[api.CommentLengthsResponse](ctx, c, api.MethodCommentLengths, &api.ReportRequest{})
}

func (c *BookClubClient) ReaderCounts(ctx context.Context) (*api.ReaderCountsResponse, error) {
	return call[api.ReaderCountsResponse](ctx, c, api.MethodReaderCounts, &api.ReportRequest{})
}
