package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Debug(ctx, "grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)

	return resp, err
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error(ctx, "panic in grpc handler",
				"method", info.FullMethod, "panic", rec, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
	}()

	return handler(ctx, req)
}
