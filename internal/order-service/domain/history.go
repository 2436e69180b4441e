package domain

import "time"

// HistoryEntry is one row of an order's status audit trail. TraceID and
// SpanID are the W3C identifiers of the span active when the row was written,
// empty when no span was recording.
type HistoryEntry struct {
	OrderID   int64
	Status    OrderStatus
	Message   string
	TraceID   string
	SpanID    string
	CreatedAt time.Time
}
