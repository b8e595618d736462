package grpc

import (
	"context"

	"github.com/bookstore/services/bookclub/internal/api"
	"google.golang.org/grpc"
)

// BookClubServer is the server API of the BookClub service
type BookClubServer interface {
	ListBooks(context.Context, *api.ListBooksRequest) (*api.BooksResponse, error)
	SearchBooks(context.Context, *api.SearchBooksRequest) (*api.BooksResponse, error)
	GetBook(context.Context, *api.GetBookRequest) (*api.BookResponse, error)
	CreateBook(context.Context, *api.CreateBookRequest) (*api.BookResponse, error)
	UpdateBook(context.Context, *api.UpdateBookRequest) (*api.UpdateBookResponse, error)
	DeleteBook(context.Context, *api.DeleteBookRequest) (*api.DeleteBookResponse, error)

	AddComment(context.Context, *api.AddCommentRequest) (*api.CommentResponse, error)
	EditComment(context.Context, *api.EditCommentRequest) (*api.CommentResponse, error)
	DeleteComment(context.Context, *api.DeleteCommentRequest) (*api.Empty, error)
	ListComments(context.Context, *api.ListCommentsRequest) (*api.CommentsResponse, error)

	ListShelf(context.Context, *api.ListShelfRequest) (*api.ShelfResponse, error)
	TrackBook(context.Context, *api.TrackBookRequest) (*api.ShelfEntryResponse, error)
	SetStatus(context.Context, *api.SetStatusRequest) (*api.ShelfEntryResponse, error)
	InitShelf(context.Context, *api.InitShelfRequest) (*api.InitShelfResponse, error)

	TotalRatings(context.Context, *api.ReportRequest) (*api.TotalRatingsResponse, error)
	MostCommented(context.Context, *api.MostCommentedRequest) (*api.MostCommentedResponse, error)
	ReadStats(context.Context, *api.ReportRequest) (*api.ReadStatsResponse, error)
	CommentLengths(context.Context, *api.ReportRequest) (*api.CommentLengthsResponse, error)
	ReaderCounts(context.Context, *api.ReportRequest) (*api.ReaderCountsResponse, error)
}

// unary adapts a typed server method to a grpc.MethodDesc
func unary[Req, Resp any](name string, call func(BookClubServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookClubServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: api.FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(BookClubServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the BookClub service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*BookClubServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodListBooks, BookClubServer.ListBooks),
		unary(api.MethodSearchBooks, BookClubServer.SearchBooks),
		unary(api.MethodGetBook, BookClubServer.GetBook),
		unary(api.MethodCreateBook, BookClubServer.CreateBook),
		unary(api.MethodUpdateBook, BookClubServer.UpdateBook),
		unary(api.MethodDeleteBook, BookClubServer.DeleteBook),
		unary(api.MethodAddComment, BookClubServer.AddComment),
		unary(api.MethodEditComment, BookClubServer.EditComment),
		unary(api.MethodDeleteComment, BookClubServer.DeleteComment),
		unary(api.MethodListComments, BookClubServer.ListComments),
		unary(api.MethodListShelf, BookClubServer.ListShelf),
		unary(api.MethodTrackBook, BookClubServer.TrackBook),
		unary(api.MethodSetStatus, BookClubServer.SetStatus),
		unary(api.MethodInitShelf, BookClubServer.InitShelf),
		unary(api.MethodTotalRatings, BookClubServer.TotalRatings),
		unary(api.MethodMostCommented, BookClubServer.MostCommented),
		unary(api.MethodReadStats, BookClubServer.ReadStats),
		unary(api.MethodCommentLengths, BookClubServer.CommentLengths),
		unary(api.MethodReaderCounts, BookClubServer.ReaderCounts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookclub/v1/bookclub.json",
}

// RegisterBookClubServer registers srv with s
func RegisterBookClubServer(s grpc.ServiceRegistrar, srv BookClubServer) {
	s.RegisterService(&ServiceDesc, srv)
}
