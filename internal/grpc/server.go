package grpc

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bookstore/services/bookclub/internal/api"
	"github.com/bookstore/services/bookclub/internal/auth"
	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/internal/events"
	"github.com/bookstore/services/bookclub/internal/service"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const eventTimeout = 10 * time.Second

// EventRecorder observes publish outcomes
type EventRecorder interface {
	EventPublished(eventType string, err error)
}

// Services bundles the domain services exposed over gRPC
type Services struct {
	Catalog     *service.Catalog
	Annotations *service.Annotations
	Shelf       *service.Shelf
	Statistics  *service.Statistics
}

// BookClubService implements BookClubServer on top of the domain services
type BookClubService struct {
	svc       Services
	publisher events.EventPublisher
	recorder  EventRecorder
	log       *zap.Logger
}

// NewBookClubService creates the gRPC facade. recorder may be nil.
func NewBookClubService(svc Services, publisher events.EventPublisher, recorder EventRecorder, log *zap.Logger) *BookClubService {
	return &BookClubService{
		svc:       svc,
		publisher: publisher,
		recorder:  recorder,
		log:       log,
	}
}

// ListBooks returns every book in the catalog
func (s *BookClubService) ListBooks(ctx context.Context, _ *api.ListBooksRequest) (*api.BooksResponse, error) {
	books, err := s.svc.Catalog.ListAll(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, s.toStatus(err, "failed to list books")
	}
	return &api.BooksResponse{Books: books}, nil
}

// SearchBooks returns books whose title contains the query, ignoring case
func (s *BookClubService) SearchBooks(ctx context.Context, req *api.SearchBooksRequest) (*api.BooksResponse, error) {
	books, err := s.svc.Catalog.Search(ctx, auth.FromContext(ctx), req.Title)
	if err != nil {
		return nil, s.toStatus(err, "failed to search books")
	}
	return &api.BooksResponse{Books: books}, nil
}

func (s *BookClubService) GetBook(ctx context.Context, req *api.GetBookRequest) (*api.BookResponse, error) {
	book, err := s.svc.Catalog.GetByID(ctx, auth.FromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(err, "failed to get book")
	}
	return &api.BookResponse{Book: book}, nil
}

// CreateBook adds a book and publishes bookclub.book.created
func (s *BookClubService) CreateBook(ctx context.Context, req *api.CreateBookRequest) (*api.BookResponse, error) {
	book, err := s.svc.Catalog.Add(ctx, auth.FromContext(ctx), req.Book.ToModel())
	if err != nil {
		return nil, s.toStatus(err, "failed to create book")
	}

	s.publish(ctx, events.EventTypeBookCreated, events.BookPayload(book))
	return &api.BookResponse{Book: book}, nil
}

// UpdateBook replaces the fields of a book. An event is published only when
// something changed.
func (s *BookClubService) UpdateBook(ctx context.Context, req *api.UpdateBookRequest) (*api.UpdateBookResponse, error) {
	book, changed, err := s.svc.Catalog.Update(ctx, auth.FromContext(ctx), req.ID, req.Book.ToModel())
	if err != nil {
		return nil, s.toStatus(err, "failed to update book")
	}

	if len(changed) > 0 {
		s.publish(ctx, events.EventTypeBookUpdated, events.BookUpdatedPayload(book, changed))
	}
	if changed == nil {
		changed = []string{}
	}
	return &api.UpdateBookResponse{Book: book, FieldsChanged: changed}, nil
}

// DeleteBook removes a book with its comments and reading records
func (s *BookClubService) DeleteBook(ctx context.Context, req *api.DeleteBookRequest) (*api.DeleteBookResponse, error) {
	deleted, err := s.svc.Catalog.Delete(ctx, auth.FromContext(ctx), req.ID)
	if err != nil {
		return nil, s.toStatus(err, "failed to delete book")
	}

	if deleted {
		s.publish(ctx, events.EventTypeBookDeleted, map[string]interface{}{"book_id": req.ID})
	}
	return &api.DeleteBookResponse{Deleted: deleted}, nil
}

func (s *BookClubService) AddComment(ctx context.Context, req *api.AddCommentRequest) (*api.CommentResponse, error) {
	comment := &db.Comment{Content: req.Content, Rating: req.Rating}
	if err := s.svc.Annotations.AddComment(ctx, auth.FromContext(ctx), req.BookID, comment); err != nil {
		return nil, s.toStatus(err, "failed to add comment")
	}

	s.publish(ctx, events.EventTypeCommentAdded, events.CommentPayload(comment))
	return &api.CommentResponse{Comment: comment}, nil
}

func (s *BookClubService) EditComment(ctx context.Context, req *api.EditCommentRequest) (*api.CommentResponse, error) {
	comment, err := s.svc.Annotations.EditComment(ctx, auth.FromContext(ctx), req.BookID, req.CommentID, req.Content, req.Rating)
	if err != nil {
		return nil, s.toStatus(err, "failed to edit comment")
	}

	s.publish(ctx, events.EventTypeCommentEdited, events.CommentPayload(comment))
	return &api.CommentResponse{Comment: comment}, nil
}

func (s *BookClubService) DeleteComment(ctx context.Context, req *api.DeleteCommentRequest) (*api.Empty, error) {
	if err := s.svc.Annotations.DeleteComment(ctx, auth.FromContext(ctx), req.BookID, req.CommentID); err != nil {
		return nil, s.toStatus(err, "failed to delete comment")
	}

	s.publish(ctx, events.EventTypeCommentDeleted, map[string]interface{}{
		"comment_id": req.CommentID,
		"book_id":    req.BookID,
	})
	return &api.Empty{}, nil
}

func (s *BookClubService) ListComments(ctx context.Context, req *api.ListCommentsRequest) (*api.CommentsResponse, error) {
	comments, err := s.svc.Annotations.ListForBook(ctx, auth.FromContext(ctx), req.BookID)
	if err != nil {
		return nil, s.toStatus(err, "failed to list comments")
	}
	return &api.CommentsResponse{Comments: comments}, nil
}

// ListShelf returns the caller's reading status records
func (s *BookClubService) ListShelf(ctx context.Context, req *api.ListShelfRequest) (*api.ShelfResponse, error) {
	entries, err := s.svc.Shelf.ListForUser(ctx, auth.FromContext(ctx), req.Status)
	if err != nil {
		return nil, s.toStatus(err, "failed to list shelf")
	}
	return &api.ShelfResponse{Entries: entries}, nil
}

func (s *BookClubService) TrackBook(ctx context.Context, req *api.TrackBookRequest) (*api.ShelfEntryResponse, error) {
	entry, err := s.svc.Shelf.Track(ctx, auth.FromContext(ctx), req.BookID)
	if err != nil {
		return nil, s.toStatus(err, "failed to track book")
	}

	s.publish(ctx, events.EventTypeStatusChanged, events.StatusChangedPayload(entry, ""))
	return &api.ShelfEntryResponse{Entry: entry}, nil
}

func (s *BookClubService) SetStatus(ctx context.Context, req *api.SetStatusRequest) (*api.ShelfEntryResponse, error) {
	change, err := s.svc.Shelf.SetStatus(ctx, req.ID, auth.FromContext(ctx), req.Status)
	if err != nil {
		return nil, s.toStatus(err, "failed to set status")
	}

	s.publish(ctx, events.EventTypeStatusChanged, events.StatusChangedPayload(change.Entry, change.Previous))
	return &api.ShelfEntryResponse{Entry: change.Entry}, nil
}

func (s *BookClubService) InitShelf(ctx context.Context, _ *api.InitShelfRequest) (*api.InitShelfResponse, error) {
	caller := auth.FromContext(ctx)
	created, err := s.svc.Shelf.InitializeForUser(ctx, caller)
	if err != nil {
		return nil, s.toStatus(err, "failed to initialize shelf")
	}

	s.publish(ctx, events.EventTypeShelfInitialized, map[string]interface{}{
		"username": caller.Username,
		"created":  created,
	})
	return &api.InitShelfResponse{Created: created}, nil
}

func (s *BookClubService) TotalRatings(ctx context.Context, _ *api.ReportRequest) (*api.TotalRatingsResponse, error) {
	rows, err := s.svc.Statistics.TotalRatings(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, s.toStatus(err, "failed to compute total ratings")
	}
	return &api.TotalRatingsResponse{Rows: rows}, nil
}

func (s *BookClubService) MostCommented(ctx context.Context, req *api.MostCommentedRequest) (*api.MostCommentedResponse, error) {
	rows, err := s.svc.Statistics.MostCommented(ctx, auth.FromContext(ctx), req.Limit)
	if err != nil {
		return nil, s.toStatus(err, "failed to compute most commented books")
	}
	return &api.MostCommentedResponse{Rows: rows}, nil
}

func (s *BookClubService) ReadStats(ctx context.Context, _ *api.ReportRequest) (*api.ReadStatsResponse, error) {
	rows, err := s.svc.Statistics.ReadCountsWithAverageRating(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, s.toStatus(err, "failed to compute read stats")
	}
	return &api.ReadStatsResponse{Rows: rows}, nil
}

func (s *BookClubService) CommentLengths(ctx context.Context, _ *api.ReportRequest) (*api.CommentLengthsResponse, error) {
	rows, err := s.svc.Statistics.AverageCommentLengths(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, s.toStatus(err, "failed to compute comment lengths")
	}
	return &api.CommentLengthsResponse{Rows: rows}, nil
}

func (s *BookClubService) ReaderCounts(ctx context.Context, _ *api.ReportRequest) (*api.ReaderCountsResponse, error) {
	rows, err := s.svc.Statistics.ReaderCounts(ctx, auth.FromContext(ctx))
	if err != nil {
		return nil, s.toStatus(err, "failed to compute reader counts")
	}
	return &api.ReaderCountsResponse{Rows: rows}, nil
}

// publish hands the event to the broker without blocking the response
func (s *BookClubService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	correlationID := events.CorrelationID(ctx)
	go func() {
		eventCtx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		eventCtx = events.WithCorrelationID(eventCtx, correlationID)

		err := s.publisher.Publish(eventCtx, eventType, payload)
		if s.recorder != nil {
			s.recorder.EventPublished(eventType, err)
		}
		if err != nil {
			s.log.Error("Failed to publish event",
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}()
}

// toStatus maps service errors onto gRPC status codes. Unexpected errors
// are logged and hidden behind msg.
func (s *BookClubService) toStatus(err error, msg string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationStatus(verr)
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrCommentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.log.Error(msg, zap.Error(err))
	return status.Error(codes.Internal, msg)
}

func validationStatus(verr *service.ValidationError) error {
	fields := make([]string, 0, len(verr.Fields))
	for field := range verr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	br := &errdetails.BadRequest{}
	for _, field := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       field,
			Description: verr.Fields[field],
		})
	}

	st := status.New(codes.InvalidArgument, verr.Error())
	detailed, err := st.WithDetails(br)
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
