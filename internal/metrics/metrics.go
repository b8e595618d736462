package metrics

import (
	"context"
	"time"

	"github.com/bookstore/services/bookclub/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "bookclub"

// Metrics groups the service's request and event instruments
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

// New registers the service instruments on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Handled gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to the broker by type and result.",
		}, []string{"event_type", "result"}),
	}
}

// ObserveRequest records one handled request
func (m *Metrics) ObserveRequest(method, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// EventPublished records the outcome of one publish attempt
func (m *Metrics) EventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

// StatsSource reports row counts of the service tables
type StatsSource interface {
	GetStats(ctx context.Context) (repo.Stats, error)
}

// catalogCollector exposes table sizes as gauges, read at scrape time
type catalogCollector struct {
	src     StatsSource
	log     *zap.Logger
	timeout time.Duration

	books      *prometheus.Desc
	comments   *prometheus.Desc
	usersBooks *prometheus.Desc
}

// RegisterCatalogCollector registers a collector that queries src on every scrape
func RegisterCatalogCollector(reg prometheus.Registerer, src StatsSource, log *zap.Logger) error {
	return reg.Register(&catalogCollector{
		src:        src,
		log:        log,
		timeout:    5 * time.Second,
		books:      prometheus.NewDesc(namespace+"_books", "Books in the catalog.", nil, nil),
		comments:   prometheus.NewDesc(namespace+"_comments", "Stored comments.", nil, nil),
		usersBooks: prometheus.NewDesc(namespace+"_users_books", "Reading status records.", nil, nil),
	})
}

func (c *catalogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.books
	ch <- c.comments
	ch <- c.usersBooks
}

func (c *catalogCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.src.GetStats(ctx)
	if err != nil {
		c.log.Warn("Failed to collect catalog stats", zap.Error(err))
		return
	}

	ch <- prometheus.MustNewConstMetric(c.books, prometheus.GaugeValue, float64(stats.Books))
	ch <- prometheus.MustNewConstMetric(c.comments, prometheus.GaugeValue, float64(stats.Comments))
	ch <- prometheus.MustNewConstMetric(c.usersBooks, prometheus.GaugeValue, float64(stats.UsersBooks))
}
