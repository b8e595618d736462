package service

import (
	"context"

	"github.com/bookstore/services/bookclub/internal/auth"
	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/internal/repo"
	"go.uber.org/zap"
)

// MostCommentedLimit is the default length of the most commented report
const MostCommentedLimit = 3

// Aggregator runs grouped aggregations over books
type Aggregator interface {
	Aggregate(ctx context.Context, q repo.Aggregation, dest interface{}) error
}

// BookRef identifies the book a report row is about
type BookRef struct {
	BookID uint   `db:"book_id" json:"book_id"`
	Title  string `db:"title" json:"title"`
	Author string `db:"author" json:"author"`
}

// RatingTotal is the sum of all comment ratings of a book
type RatingTotal struct {
	BookRef
	TotalRating int64 `db:"total_rating" json:"total_rating"`
}

// CommentCount is the number of comments of a book
type CommentCount struct {
	BookRef
	Comments int64 `db:"comment_count" json:"comment_count"`
}

// ReadStats pairs the number of READED records of a book with the average
// rating of all its comments. The two are computed independently.
type ReadStats struct {
	BookRef
	ReadCount     int64   `db:"read_count" json:"read_count"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
}

// CommentLength is the mean character length of the comments of a book
type CommentLength struct {
	BookRef
	AverageLength float64 `db:"average_length" json:"average_length"`
}

// ReaderCount is the number of reading status records of a book, whatever their status
type ReaderCount struct {
	BookRef
	Readers int64 `db:"readers" json:"readers"`
}

var (
	totalRatingReport = repo.Aggregation{
		Metrics: []repo.Metric{
			{Alias: "total_rating", Source: repo.SourceComments, Func: repo.AggSum, Column: "rating"},
		},
		OrderBy: []repo.Order{{Alias: "total_rating", Desc: true}},
	}

	commentCountReport = repo.Aggregation{
		Metrics: []repo.Metric{
			{Alias: "comment_count", Source: repo.SourceComments, Func: repo.AggCount},
		},
		OrderBy: []repo.Order{{Alias: "comment_count", Desc: true}},
	}

	readStatsReport = repo.Aggregation{
		Metrics: []repo.Metric{
			{
				Alias:  "read_count",
				Source: repo.SourceUsersBooks,
				Func:   repo.AggCount,
				Where:  map[string]interface{}{"status": string(db.StatusReaded)},
			},
			{Alias: "average_rating", Source: repo.SourceComments, Func: repo.AggAvg, Column: "rating"},
		},
		OrderBy: []repo.Order{
			{Alias: "read_count", Desc: true},
			{Alias: "average_rating", Desc: true},
		},
	}

	commentLengthReport = repo.Aggregation{
		Metrics: []repo.Metric{
			{Alias: "average_length", Source: repo.SourceComments, Func: repo.AggAvg, Column: "content", Length: true},
		},
		OrderBy: []repo.Order{{Alias: "average_length"}},
	}

	readerCountReport = repo.Aggregation{
		Metrics: []repo.Metric{
			{Alias: "readers", Source: repo.SourceUsersBooks, Func: repo.AggCount},
		},
		OrderBy: []repo.Order{{Alias: "readers", Desc: true}},
	}
)

// Statistics computes read-only reports over books, comments and reading
// status records. Every report lists each book, with 0 where it has no rows.
type Statistics struct {
	agg Aggregator
	log *zap.Logger
}

// NewStatistics creates a statistics service
func NewStatistics(agg Aggregator, log *zap.Logger) *Statistics {
	return &Statistics{agg: agg, log: log}
}

// TotalRatings sums comment ratings per book, highest first
func (s *Statistics) TotalRatings(ctx context.Context, caller auth.Caller) ([]RatingTotal, error) {
	rows := []RatingTotal{}
	if err := s.run(ctx, caller, totalRatingReport, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MostCommented returns the limit books with most comments. limit <= 0
// means MostCommentedLimit.
func (s *Statistics) MostCommented(ctx context.Context, caller auth.Caller, limit int) ([]CommentCount, error) {
	if limit <= 0 {
		limit = MostCommentedLimit
	}
	q := commentCountReport
	q.Limit = uint(limit)

	rows := []CommentCount{}
	if err := s.run(ctx, caller, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadCountsWithAverageRating orders books by READED count, then by average rating
func (s *Statistics) ReadCountsWithAverageRating(ctx context.Context, caller auth.Caller) ([]ReadStats, error) {
	rows := []ReadStats{}
	if err := s.run(ctx, caller, readStatsReport, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AverageCommentLengths orders books by mean comment length, shortest first
func (s *Statistics) AverageCommentLengths(ctx context.Context, caller auth.Caller) ([]CommentLength, error) {
	rows := []CommentLength{}
	if err := s.run(ctx, caller, commentLengthReport, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReaderCounts counts reading status records per book, most first
func (s *Statistics) ReaderCounts(ctx context.Context, caller auth.Caller) ([]ReaderCount, error) {
	rows := []ReaderCount{}
	if err := s.run(ctx, caller, readerCountReport, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Statistics) run(ctx context.Context, caller auth.Caller, q repo.Aggregation, dest interface{}) error {
	if err := requireCapability(caller, auth.CapabilityAdmin); err != nil {
		return err
	}
	return s.agg.Aggregate(ctx, q, dest)
}
