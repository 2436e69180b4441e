// Package constants names the request metadata shared by the HTTP and gRPC
// surfaces.
package constants

type contextKey string

// Header names double as gRPC metadata keys, which are always lower case.
const (
	HeaderXRequestId      = "x-request-id"
	HeaderXIdempotencyKey = "x-idempotency-key"
)

const (
	ContextKeyRequestID      contextKey = HeaderXRequestId
	ContextKeyIdempotencyKey contextKey = HeaderXIdempotencyKey
)
