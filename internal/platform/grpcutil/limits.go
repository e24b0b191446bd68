package grpcutil

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryTimeout applies a default timeout to unary RPCs that do not already
// have a deadline.
func UnaryTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		c, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(c, req)
	}
}

// semaphore is a fail-fast counting semaphore; a nil semaphore never blocks.
type semaphore chan struct{}

func newSemaphore(max int) semaphore {
	if max <= 0 {
		return nil
	}
	return make(semaphore, max)
}

func (s semaphore) tryAcquire() bool {
	if s == nil {
		return true
	}
	select {
	case s <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s semaphore) release() {
	if s != nil {
		<-s
	}
}

// UnaryInFlightLimit bounds concurrent in-flight unary RPCs.
// If the limit is reached, it returns ResourceExhausted.
func UnaryInFlightLimit(max int) grpc.UnaryServerInterceptor {
	sem := newSemaphore(max)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !sem.tryAcquire() {
			return nil, status.Error(codes.ResourceExhausted, "too many in-flight requests")
		}
		defer sem.release()
		return handler(ctx, req)
	}
}

// StreamInFlightLimit bounds concurrent in-flight streaming RPCs.
// If the limit is reached, it returns ResourceExhausted.
func StreamInFlightLimit(max int) grpc.StreamServerInterceptor {
	sem := newSemaphore(max)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !sem.tryAcquire() {
			return status.Error(codes.ResourceExhausted, "too many in-flight streams")
		}
		defer sem.release()
		return handler(srv, ss)
	}
}
