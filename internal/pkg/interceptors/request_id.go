package interceptors

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors/constants"
)

// WithRequestMetadata stores the request id and idempotency key under the
// typed context keys. Empty values are stored as-is.
func WithRequestMetadata(ctx context.Context, requestID, idempotencyKey string) context.Context {
	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
	return context.WithValue(ctx, constants.ContextKeyIdempotencyKey, idempotencyKey)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(constants.ContextKeyRequestID).(string)
	return id
}

func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(constants.ContextKeyIdempotencyKey).(string)
	return key
}

// metadataValue returns the first value of key in the incoming gRPC metadata.
func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// requestIDOrNew keeps a caller supplied id and generates one otherwise.
func requestIDOrNew(ctx context.Context) string {
	if id := metadataValue(ctx, constants.HeaderXRequestId); id != "" {
		return id
	}
	return uuid.NewString()
}
