// Package httpapi serves the operational HTTP endpoints: liveness,
// readiness and Prometheus metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the database answers
type Pinger interface {
	Ping() error
}

// BrokerStatus reports whether the event broker connection is usable
type BrokerStatus interface {
	IsHealthy() bool
}

// Deps are the collaborators the router checks and exposes
type Deps struct {
	DB       Pinger
	Broker   BrokerStatus
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

// NewRouter builds the ops router
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Log))

	router.GET("/healthz", healthHandler(deps))
	router.GET("/readyz", readyHandler(deps))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

func healthHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.DB.Ping(); err != nil {
			deps.Log.Error("Database health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"reason": "database connection failed",
			})
			return
		}

		if !deps.Broker.IsHealthy() {
			deps.Log.Error("RabbitMQ health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"reason": "rabbitmq connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// readyHandler only needs the database; the service still answers reads
// while the broker is down.
func readyHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.DB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
