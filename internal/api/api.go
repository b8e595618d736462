// Package api holds the request and response messages of the BookClub
// gRPC service. Messages travel as JSON.
package api

import (
	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/internal/service"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "bookclub.v1.BookClub"

// Method names, relative to ServiceName
const (
	MethodListBooks      = "ListBooks"
	MethodSearchBooks    = "SearchBooks"
	MethodGetBook        = "GetBook"
	MethodCreateBook     = "CreateBook"
	MethodUpdateBook     = "UpdateBook"
	MethodDeleteBook     = "DeleteBook"
	MethodAddComment     = "AddComment"
	MethodEditComment    = "EditComment"
	MethodDeleteComment  = "DeleteComment"
	MethodListComments   = "ListComments"
	MethodListShelf      = "ListShelf"
	MethodTrackBook      = "TrackBook"
	MethodSetStatus      = "SetStatus"
	MethodInitShelf      = "InitShelf"
	MethodTotalRatings   = "TotalRatings"
	MethodMostCommented  = "MostCommented"
	MethodReadStats      = "ReadStats"
	MethodCommentLengths = "CommentLengths"
	MethodReaderCounts   = "ReaderCounts"
)

// FullMethod returns "/bookclub.v1.BookClub/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// BookInput carries the writable fields of a book
type BookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
}

// ToModel converts the input into a book record
func (in BookInput) ToModel() db.Book {
	return db.Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Genre:       in.Genre,
	}
}

type ListBooksRequest struct{}

type SearchBooksRequest struct {
	Title string `json:"title"`
}

type BooksResponse struct {
	Books []*db.Book `json:"books"`
}

type GetBookRequest struct {
	ID uint `json:"id"`
}

type BookResponse struct {
	Book *db.Book `json:"book"`
}

type CreateBookRequest struct {
	Book BookInput `json:"book"`
}

type UpdateBookRequest struct {
	ID   uint      `json:"id"`
	Book BookInput `json:"book"`
}

type UpdateBookResponse struct {
	Book          *db.Book `json:"book"`
	FieldsChanged []string `json:"fields_changed"`
}

type DeleteBookRequest struct {
	ID uint `json:"id"`
}

type DeleteBookResponse struct {
	Deleted bool `json:"deleted"`
}

type AddCommentRequest struct {
	BookID  uint   `json:"book_id"`
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

type EditCommentRequest struct {
	BookID    uint   `json:"book_id"`
	CommentID uint   `json:"comment_id"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
}

type DeleteCommentRequest struct {
	BookID    uint `json:"book_id"`
	CommentID uint `json:"comment_id"`
}

type ListCommentsRequest struct {
	BookID uint `json:"book_id"`
}

type CommentResponse struct {
	Comment *db.Comment `json:"comment"`
}

type CommentsResponse struct {
	Comments []*db.Comment `json:"comments"`
}

// Empty is returned by operations with no result
type Empty struct{}

type ListShelfRequest struct {
	// Status optionally filters by UNREAD, WANT_READ or READED
	Status string `json:"status,omitempty"`
}

type ShelfResponse struct {
	Entries []*db.UsersBook `json:"entries"`
}

type TrackBookRequest struct {
	BookID uint `json:"book_id"`
}

type SetStatusRequest struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

type ShelfEntryResponse struct {
	Entry *db.UsersBook `json:"entry"`
}

type InitShelfRequest struct{}

type InitShelfResponse struct {
	Created int `json:"created"`
}

type ReportRequest struct{}

type MostCommentedRequest struct {
	// Limit defaults to 3 when zero
	Limit int `json:"limit,omitempty"`
}

type TotalRatingsResponse struct {
	Rows []service.RatingTotal `json:"rows"`
}

type MostCommentedResponse struct {
	Rows []service.CommentCount `json:"rows"`
}

type ReadStatsResponse struct {
	Rows []service.ReadStats `json:"rows"`
}

type CommentLengthsResponse struct {
	Rows []service.CommentLength `json:"rows"`
}

type ReaderCountsResponse struct {
	Rows []service.ReaderCount `json:"rows"`
}
