package grpc

import (
	"context"
	"time"

	"github.com/bookstore/services/bookclub/internal/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// CorrelationHeader carries the request correlation id in both directions
const CorrelationHeader = "x-correlation-id"

// RequestObserver records per-request metrics
type RequestObserver interface {
	ObserveRequest(method, code string, elapsed time.Duration)
}

// CorrelationInterceptor reuses the caller's correlation id or mints one,
// stores it in the context and echoes it in the response header.
func CorrelationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var id string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(CorrelationHeader); len(values) > 0 {
				id = values[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		_ = grpc.SetHeader(ctx, metadata.Pairs(CorrelationHeader, id))
		return handler(events.WithCorrelationID(ctx, id), req)
	}
}

// LoggingInterceptor logs all gRPC requests. observer may be nil.
func LoggingInterceptor(log *zap.Logger, observer RequestObserver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		if observer != nil {
			observer.ObserveRequest(info.FullMethod, code.String(), elapsed)
		}

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", elapsed),
			zap.String("correlation_id", events.CorrelationID(ctx)),
		}
		if err != nil {
			log.Error("gRPC request failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("gRPC request completed", fields...)
		}

		return resp, err
	}
}
