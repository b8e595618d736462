package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "

	// Trusted headers, only honoured by HeaderResolver
	usernameHeader = "x-username"
	rolesHeader    = "x-roles"

	healthServicePrefix = "/grpc.health.v1.Health/"
)

// Resolver turns incoming request metadata into a Caller
type Resolver interface {
	Resolve(md metadata.MD) (Caller, error)
}

// Resolve reads a bearer token from the authorization header. Requests
// without one resolve to Anonymous.
func (v *Verifier) Resolve(md metadata.MD) (Caller, error) {
	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return Anonymous, nil
	}

	header := values[0]
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return Anonymous, ErrInvalidToken
	}
	return v.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
}

// HeaderResolver trusts x-username and x-roles set by an upstream gateway.
// It is meant for deployments where authentication happens in front of the service.
type HeaderResolver struct {
	ReadRole  string
	AdminRole string
}

// Resolve builds a caller from the trusted headers
func (h HeaderResolver) Resolve(md metadata.MD) (Caller, error) {
	usernames := md.Get(usernameHeader)
	if len(usernames) == 0 || usernames[0] == "" {
		return Anonymous, nil
	}

	caller := Caller{Username: usernames[0]}
	for _, value := range md.Get(rolesHeader) {
		for _, role := range strings.Split(value, ",") {
			switch strings.TrimSpace(role) {
			case h.ReadRole:
				caller.Capabilities = append(caller.Capabilities, CapabilityRead)
			case h.AdminRole:
				caller.Capabilities = append(caller.Capabilities, CapabilityAdmin)
			}
		}
	}
	return caller, nil
}

// UnaryServerInterceptor resolves the caller of every request and stores it
// in the request context. Health checks bypass resolution.
func UnaryServerInterceptor(resolver Resolver, log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		caller, err := resolver.Resolve(md)
		if err != nil {
			log.Debug("Rejected credentials", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		}

		return handler(WithCaller(ctx, caller), req)
	}
}
