package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Source is a table that references books through its book_id column
type Source string

const (
	SourceComments   Source = "comments"
	SourceUsersBooks Source = "users_books"
)

// AggFunc is the aggregate applied to the rows of a Source per book
type AggFunc string

const (
	AggCount AggFunc = "COUNT"
	AggSum   AggFunc = "SUM"
	AggAvg   AggFunc = "AVG"
)

// Metric is one aggregated column of an Aggregation. A book without matching
// rows in Source yields 0.
type Metric struct {
	// Alias names the result column
	Alias  string
	Source Source
	Func   AggFunc
	// Column is the aggregated column. Empty with AggCount counts rows.
	Column string
	// Length aggregates the character length of Column instead of its value
	Length bool
	// Where restricts the Source rows, e.g. {"status": "READED"}
	Where map[string]interface{}
}

// Order sorts the result by a metric alias
type Order struct {
	Alias string
	Desc  bool
}

// Aggregation describes a grouped report over every book. Each metric is
// computed in its own subquery so independent joins never multiply rows.
type Aggregation struct {
	Metrics []Metric
	OrderBy []Order
	// Limit truncates the result when positive
	Limit uint
}

var (
	// ErrInvalidAggregation is returned for an aggregation that cannot be built
	ErrInvalidAggregation = errors.New("invalid aggregation")

	goquDialects = map[string]string{
		"postgres": "postgres",
		"sqlite":   "sqlite3",
	}
	sqlxDrivers = map[string]string{
		"postgres": "pgx",
		"sqlite":   "sqlite3",
	}
)

// StatsRepository runs read-only aggregate queries over books and their
// comments and reading status records.
type StatsRepository struct {
	dialect goqu.DialectWrapper
	sx      *sqlx.DB
	log     *zap.Logger
}

// NewStatsRepository creates a stats repository sharing the connection pool of database
func NewStatsRepository(database *db.DB, logger *zap.Logger) (*StatsRepository, error) {
	name := database.Dialect()
	dialect, ok := goquDialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}

	sqlDB, err := database.DB.DB()
	if err != nil {
		return nil, err
	}

	return &StatsRepository{
		dialect: goqu.Dialect(dialect),
		sx:      sqlx.NewDb(sqlDB, sqlxDrivers[name]),
		log:     logger,
	}, nil
}

// Aggregate runs q and scans one row per book into dest, a pointer to a
// slice of structs whose db tags cover book_id, title, author and every
// metric alias.
func (r *StatsRepository) Aggregate(ctx context.Context, q Aggregation, dest interface{}) error {
	query, args, err := r.buildQuery(q)
	if err != nil {
		return err
	}

	if err := r.sx.SelectContext(ctx, dest, query, args...); err != nil {
		r.log.Error("Failed to run aggregation", zap.String("query", query), zap.Error(err))
		return err
	}
	return nil
}

func (r *StatsRepository) buildQuery(q Aggregation) (string, []interface{}, error) {
	if len(q.Metrics) == 0 {
		return "", nil, fmt.Errorf("%w: no metrics", ErrInvalidAggregation)
	}

	ds := r.dialect.From(goqu.T("books")).Select(
		goqu.I("books.id").As("book_id"),
		goqu.I("books.title").As("title"),
		goqu.I("books.author").As("author"),
	)

	aliases := make(map[string]bool, len(q.Metrics))
	for i, m := range q.Metrics {
		agg, err := aggregateExpression(m)
		if err != nil {
			return "", nil, err
		}

		sub := r.dialect.From(goqu.T(string(m.Source))).
			Select(goqu.I("book_id"), agg.As("value")).
			GroupBy(goqu.I("book_id"))
		if len(m.Where) > 0 {
			sub = sub.Where(goqu.Ex(m.Where))
		}

		join := fmt.Sprintf("m%d", i)
		ds = ds.
			LeftJoin(sub.As(join), goqu.On(goqu.I(join+".book_id").Eq(goqu.I("books.id")))).
			SelectAppend(goqu.COALESCE(goqu.I(join+".value"), 0).As(m.Alias))
		aliases[m.Alias] = true
	}

	for _, o := range q.OrderBy {
		if !aliases[o.Alias] {
			return "", nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidAggregation, o.Alias)
		}
		if o.Desc {
			ds = ds.OrderAppend(goqu.I(o.Alias).Desc())
		} else {
			ds = ds.OrderAppend(goqu.I(o.Alias).Asc())
		}
	}
	// Ties resolve by book id
	ds = ds.OrderAppend(goqu.I("books.id").Asc())

	if q.Limit > 0 {
		ds = ds.Limit(q.Limit)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidAggregation, err)
	}
	return query, args, nil
}

func aggregateExpression(m Metric) (exp.SQLFunctionExpression, error) {
	if m.Alias == "" {
		return nil, fmt.Errorf("%w: metric without alias", ErrInvalidAggregation)
	}
	if m.Source != SourceComments && m.Source != SourceUsersBooks {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidAggregation, m.Source)
	}

	var value exp.Expression = goqu.Star()
	if m.Column != "" {
		value = goqu.I(m.Column)
		if m.Length {
			value = goqu.Func("LENGTH", goqu.I(m.Column))
		}
	} else if m.Func != AggCount {
		return nil, fmt.Errorf("%w: %s needs a column", ErrInvalidAggregation, m.Func)
	}

	switch m.Func {
	case AggCount:
		return goqu.COUNT(value), nil
	case AggSum:
		return goqu.SUM(value), nil
	case AggAvg:
		return goqu.AVG(goqu.Cast(value, "FLOAT")), nil
	default:
		return nil, fmt.Errorf("%w: unknown function %q", ErrInvalidAggregation, m.Func)
	}
}
