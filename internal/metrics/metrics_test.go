package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bookstore/services/bookclub/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStats struct {
	stats repo.Stats
	err   error
}

func (f fakeStats) GetStats(context.Context) (repo.Stats, error) { return f.stats, f.err }

func TestRequestAndEventCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("/bookclub.v1.BookClub/ListBooks", "OK", 10*time.Millisecond)
	m.ObserveRequest("/bookclub.v1.BookClub/ListBooks", "OK", 20*time.Millisecond)
	m.EventPublished("bookclub.book.created", nil)
	m.EventPublished("bookclub.book.created", errors.New("broker down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/bookclub.v1.BookClub/ListBooks", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("bookclub.book.created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("bookclub.book.created", "error")))
}

func TestCatalogCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := fakeStats{stats: repo.Stats{Books: 3, Comments: 5, UsersBooks: 2}}
	require.NoError(t, RegisterCatalogCollector(reg, src, zap.NewNop()))

	expected := `
# HELP bookclub_books Books in the catalog.
# TYPE bookclub_books gauge
bookclub_books 3
# HELP bookclub_comments Stored comments.
# TYPE bookclub_comments gauge
bookclub_comments 5
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "bookclub_books", "bookclub_comments")
	assert.NoError(t, err)
}

func TestCatalogCollectorSkipsOnError(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterCatalogCollector(reg, fakeStats{err: errors.New("db down")}, zap.NewNop()))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
